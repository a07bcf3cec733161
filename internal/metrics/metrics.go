// Package metrics exposes parlo's Prometheus collectors on a private
// registry, plus a few lock-free counters for the admin status view.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/parlo/internal/session"
)

const namespace = "parlo"

// Metrics records responder, session and HTTP activity. The zero value is
// not usable; call New. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	replies        *prometheus.CounterVec
	replyDuration  prometheus.Histogram
	replyErrors    *prometheus.CounterVec
	sessionLookups *prometheus.CounterVec
	swept          prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec

	// Plain counters for the JSON status endpoint.
	replyCount   atomic.Int64
	errorCount   atomic.Int64
	totalLatency atomic.Int64 // nanoseconds
	sweptCount   atomic.Int64
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies produced, by resolved intent.",
		}, []string{"intent"}),
		replyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_duration_seconds",
			Help:      "Time spent composing a reply.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		replyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_errors_total",
			Help:      "Rejected chat requests, by reason.",
		}, []string{"reason"}),
		sessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_lookups_total",
			Help:      "Session resolutions, by origin (live, created, expired).",
		}, []string{"origin"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired sessions removed by the reaper.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.replies,
		m.replyDuration,
		m.replyErrors,
		m.sessionLookups,
		m.swept,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterLiveSessions exposes fn as the parlo_sessions_live gauge.
func (m *Metrics) RegisterLiveSessions(fn func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_live",
		Help:      "Sessions currently held in memory.",
	}, func() float64 { return float64(fn()) }))
}

// ObserveReply records one composed reply.
func (m *Metrics) ObserveReply(intent string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.replies.WithLabelValues(intent).Inc()
	m.replyDuration.Observe(elapsed.Seconds())
	m.replyCount.Add(1)
	m.totalLatency.Add(int64(elapsed))
}

// ObserveError records a rejected request.
func (m *Metrics) ObserveError(reason string) {
	if m == nil {
		return
	}
	m.replyErrors.WithLabelValues(reason).Inc()
	m.errorCount.Add(1)
}

// ObserveSession records how a session was resolved.
func (m *Metrics) ObserveSession(origin session.Origin) {
	if m == nil {
		return
	}
	m.sessionLookups.WithLabelValues(origin.String()).Inc()
}

// ObserveSweep records a reaper run.
func (m *Metrics) ObserveSweep(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.swept.Add(float64(removed))
	m.sweptCount.Add(int64(removed))
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Snapshot returns a consistent point-in-time view of the plain counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	replies := m.replyCount.Load()
	snap := Snapshot{
		Replies: replies,
		Errors:  m.errorCount.Load(),
		Swept:   m.sweptCount.Load(),
	}
	if replies > 0 {
		snap.AvgLatency = time.Duration(m.totalLatency.Load() / replies)
	}
	return snap
}

// Snapshot is a serializable point-in-time metrics view.
type Snapshot struct {
	Replies    int64         `json:"replies"`
	Errors     int64         `json:"errors"`
	Swept      int64         `json:"sessions_swept"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
}
