package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/metrics"
	"github.com/flemzord/parlo/internal/session"
)

func TestNew_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	store := session.NewStore(time.Minute)
	if _, err := New(config.Default().Server, Deps{Sessions: store}); err == nil {
		t.Error("expected error without responder")
	}
	if _, err := New(config.Default().Server, Deps{Responder: &echoReplier{store: store}}); err == nil {
		t.Error("expected error without session store")
	}
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, func(cfg *config.ServerConfig, _ *Deps) {
		cfg.Bind = "127.0.0.1:0"
	})
	if g.Addr() != "" {
		t.Errorf("Addr() before Start = %q", g.Addr())
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := g.Start(); err == nil {
		t.Error("second Start should fail")
	}

	resp, err := http.Get("http://" + g.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestGateway_StopWithoutStart(t *testing.T) {
	t.Parallel()
	g, _ := newTestGateway(t, nil)
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestGateway_StartBadBind(t *testing.T) {
	t.Parallel()
	g, _ := newTestGateway(t, func(cfg *config.ServerConfig, _ *Deps) {
		cfg.Bind = "256.0.0.1:99999"
	})
	if err := g.Start(); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	_, _ = store.Create()

	rr := do(t, g.Handler(), http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[HealthResponse](t, rr)
	if got.Status != "ok" || got.Sessions != 1 || got.Intents != 2 {
		t.Errorf("health = %+v", got)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("wildcard", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t, nil)
		rr := do(t, g.Handler(), http.MethodGet, "/health", nil, http.Header{"Origin": {"https://site.example"}})
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t, nil)
		rr := do(t, g.Handler(), http.MethodOptions, "/chat", nil, http.Header{
			"Origin":                        {"https://site.example"},
			"Access-Control-Request-Method": {"POST"},
		})
		if rr.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rr.Code)
		}
		if !strings.Contains(rr.Header().Get("Access-Control-Allow-Headers"), sessionHeader) {
			t.Errorf("Allow-Headers = %q", rr.Header().Get("Access-Control-Allow-Headers"))
		}
	})

	t.Run("restricted", func(t *testing.T) {
		t.Parallel()
		g, _ := newTestGateway(t, func(cfg *config.ServerConfig, _ *Deps) {
			cfg.CORSOrigins = []string{"https://allowed.example"}
		})
		rr := do(t, g.Handler(), http.MethodGet, "/health", nil, http.Header{"Origin": {"https://allowed.example"}})
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://allowed.example" {
			t.Errorf("Allow-Origin = %q", got)
		}
		rr = do(t, g.Handler(), http.MethodGet, "/health", nil, http.Header{"Origin": {"https://evil.example"}})
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin for foreign origin = %q", got)
		}
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, func(cfg *config.ServerConfig, _ *Deps) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.01, Burst: 2}
	})

	for i := range 2 {
		if rr := do(t, g.Handler(), http.MethodGet, "/stats", nil, nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
	rr := do(t, g.Handler(), http.MethodGet, "/stats", nil, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Health probes are exempt.
	if rr := do(t, g.Handler(), http.MethodGet, "/health", nil, nil); rr.Code != http.StatusOK {
		t.Errorf("/health status = %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	g, _ := newTestGateway(t, func(_ *config.ServerConfig, d *Deps) { d.Metrics = m })

	do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "bonjour"}, nil)
	rr := do(t, g.Handler(), http.MethodGet, "/metrics", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `parlo_http_requests_total{code="200",method="POST",route="/chat"}`) {
		t.Errorf("route metric missing from exposition:\n%s", body)
	}
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	t.Parallel()
	g, _ := newTestGateway(t, nil)
	if rr := do(t, g.Handler(), http.MethodGet, "/metrics", nil, nil); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, func(_ *config.ServerConfig, d *Deps) {
		d.Responder = panicReplier{}
	})
	rr := do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "boom"}, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	got := originPatterns([]string{"*", "https://app.example:8443", "localhost:3000"})
	want := []string{"*", "app.example:8443", "localhost:3000"}
	data, _ := json.Marshal(got)
	wantData, _ := json.Marshal(want)
	if string(data) != string(wantData) {
		t.Errorf("originPatterns = %s, want %s", data, wantData)
	}
}
