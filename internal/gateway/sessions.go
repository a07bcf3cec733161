package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// History limits for GET /session/{id}/history.
const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

// maxSessionIDLength bounds client-supplied ids. Generated ids are 36-char UUIDs.
const maxSessionIDLength = 64

var errInvalidSessionID = errors.New("session_id must be 1 to 64 letters, digits, '-' or '_'")

// validSessionID reports whether a client-supplied id may become a store key.
func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// requireSessionID rejects routes whose {id} parameter is not a valid id.
// Mount it with r.With so the parameter is already resolved.
func requireSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validSessionID(chi.URLParam(r, "id")) {
			writeError(w, http.StatusBadRequest, errInvalidSessionID.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Intents  int    `json:"intents"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Sessions: g.deps.Sessions.Len(),
			Intents:  len(g.deps.Intents),
		})
	}
}

func (g *Gateway) handleCreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		id, err := g.deps.Sessions.Create()
		if err != nil {
			g.logger.Error("session create failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not create session")
			return
		}
		w.Header().Set(sessionHeader, id)
		writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
	}
}

// handleGetSession returns a snapshot. Unknown ids are created on the fly,
// like every other store lookup.
func (g *Gateway) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, g.deps.Sessions.Get(chi.URLParam(r, "id")))
	}
}

// historyResponse is the JSON response for GET /session/{id}/history.
type historyResponse struct {
	SessionID string `json:"session_id"`
	History   any    `json:"history"`
}

func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		id := chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, historyResponse{
			SessionID: id,
			History:   g.deps.Sessions.History(id, limit),
		})
	}
}

// handleClearSession removes the session and, when archiving is enabled,
// its transcript.
func (g *Gateway) handleClearSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cleared := g.clearSession(r, id)
		writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
	}
}

func (g *Gateway) clearSession(r *http.Request, id string) bool {
	cleared := g.deps.Sessions.Clear(id)
	if g.deps.Transcripts != nil {
		if _, err := g.deps.Transcripts.DeleteSession(r.Context(), id); err != nil {
			g.logger.Warn("transcript purge failed", "session", id, "error", err)
		}
	}
	return cleared
}

func (g *Gateway) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.deps.Sessions.Stats())
	}
}
