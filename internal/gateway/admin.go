package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/parlo/internal/cron"
	"github.com/flemzord/parlo/internal/metrics"
	"github.com/flemzord/parlo/internal/security"
	"github.com/flemzord/parlo/internal/session"
	"github.com/go-chi/chi/v5"
)

// Limits for GET /api/sessions/{id}/transcript.
const (
	defaultTranscriptLimit = 100
	maxTranscriptLimit     = 1000
)

// StatusResponse is the JSON response for GET /api/status.
type StatusResponse struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Metrics       metrics.Snapshot `json:"metrics"`
	Sessions      session.Stats    `json:"sessions"`
	Intents       []string         `json:"intents"`
	Threshold     float64          `json:"threshold"`
	Archive       bool             `json:"archive"`
	// IdleTimeoutSeconds and HistoryLimit describe the session store.
	IdleTimeoutSeconds int64 `json:"idle_timeout_seconds"`
	HistoryLimit       int   `json:"history_limit"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
			Metrics:       g.deps.Metrics.Snapshot(),
			Sessions:      g.deps.Sessions.Stats(),
			Intents:       g.deps.Intents,
			Threshold:     g.deps.Threshold,
			Archive:       g.deps.Transcripts != nil,

			IdleTimeoutSeconds: int64(g.deps.Sessions.Timeout() / time.Second),
			HistoryLimit:       g.deps.Sessions.HistoryLimit(),
		})
	}
}

// handleGetConfig returns the effective config with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.deps.Settings == nil {
			writeError(w, http.StatusServiceUnavailable, "config not available")
			return
		}
		settings, err := g.deps.Settings()
		if err != nil {
			g.logger.Error("config snapshot failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to serialize config")
			return
		}

		redactor := g.deps.Redactor
		if redactor == nil {
			redactor = security.NewRedactor()
		}
		redactor.RedactMap(settings)
		writeJSON(w, http.StatusOK, settings)
	}
}

func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := g.deps.Sessions.List()
		if sessions == nil {
			sessions = []session.Summary{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

// handleDeleteSession removes a session; unlike DELETE /session/{id} an
// unknown id is reported as 404.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !g.clearSession(r, id) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		g.deps.Audit.Log(security.AuditEvent{
			Type:       security.EventSessionClear,
			SessionID:  id,
			RemoteAddr: clientIP(r),
			Route:      r.URL.Path,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleTranscript() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.deps.Transcripts == nil {
			writeError(w, http.StatusServiceUnavailable, "transcript archive disabled")
			return
		}

		limit := defaultTranscriptLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxTranscriptLimit)
		}

		id := chi.URLParam(r, "id")
		records, err := g.deps.Transcripts.Recent(r.Context(), id, limit)
		if err != nil {
			g.logger.Error("transcript read failed", "session", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read transcript")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// handleSweep runs the session sweep job now instead of waiting for its
// schedule.
func (g *Gateway) handleSweep() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.deps.Jobs == nil {
			writeError(w, http.StatusServiceUnavailable, "scheduler not running")
			return
		}

		err := g.deps.Jobs.Trigger(r.Context(), g.deps.SweepJob)
		switch {
		case errors.Is(err, cron.ErrJobBusy):
			writeError(w, http.StatusConflict, "sweep already running")
			return
		case err != nil:
			g.logger.Error("manual sweep failed", "error", err)
			writeError(w, http.StatusInternalServerError, "sweep failed")
			return
		}

		g.deps.Audit.Log(security.AuditEvent{
			Type:       security.EventSweep,
			RemoteAddr: clientIP(r),
			Route:      r.URL.Path,
			Detail:     g.deps.SweepJob,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"job":      g.deps.SweepJob,
			"sessions": g.deps.Sessions.Len(),
		})
	}
}
