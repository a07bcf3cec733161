package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// sessionHeader carries the session id on requests and replies.
const sessionHeader = "X-Session-ID"

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, g.observe, middleware.Recoverer)
	r.Use(corsMiddleware(g.config.CORSOrigins))

	// Probes: never rate limited.
	r.Get("/health", g.handleHealth())
	if g.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(g.rateLimit)
		r.Post("/chat", g.handleChat())
		r.Get("/ws", g.handleWebSocket())
		r.Post("/session", g.handleCreateSession())
		r.With(requireSessionID).Get("/session/{id}", g.handleGetSession())
		r.With(requireSessionID).Get("/session/{id}/history", g.handleHistory())
		r.With(requireSessionID).Delete("/session/{id}", g.handleClearSession())
		r.Get("/stats", g.handleStats())
	})

	// Admin endpoints: not mounted if no auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(g.rateLimit)
			r.Use(authMiddleware(g.config.Auth, g.deps.Audit))
			r.Route("/api", func(r chi.Router) {
				r.Get("/status", g.handleStatus())
				r.Get("/config", g.handleGetConfig())
				r.Get("/sessions", g.handleListSessions())
				r.With(requireSessionID).Delete("/sessions/{id}", g.handleDeleteSession())
				r.With(requireSessionID).Get("/sessions/{id}/transcript", g.handleTranscript())
				r.Post("/sweep", g.handleSweep())
			})
		})
	}

	return r
}
