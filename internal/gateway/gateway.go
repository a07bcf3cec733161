// Package gateway serves the chat API over HTTP and WebSocket, plus an
// authenticated admin API. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/security"
)

// Gateway is the HTTP front of the responder.
type Gateway struct {
	config    config.ServerConfig
	deps      Deps
	logger    *slog.Logger
	limiter   *security.RateLimiter
	handler   http.Handler
	startedAt time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	// cancelBase ends the request contexts of hijacked WebSocket
	// connections, which Shutdown does not track.
	cancelBase context.CancelFunc
}

// New validates deps and builds the router. cfg is expected to have
// defaults applied.
func New(cfg config.ServerConfig, deps Deps) (*Gateway, error) {
	if deps.Responder == nil {
		return nil, errors.New("gateway: responder is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("gateway: session store is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SweepJob == "" {
		deps.SweepJob = "session_sweep"
	}

	g := &Gateway{
		config:    cfg,
		deps:      deps,
		logger:    deps.Logger.With("component", "gateway"),
		limiter:   security.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		startedAt: time.Now(),
	}
	g.handler = g.buildRouter()
	return g, nil
}

// Handler returns the fully wired router.
func (g *Gateway) Handler() http.Handler { return g.handler }

// Limiter exposes the per-client rate limiter so idle buckets can be pruned.
func (g *Gateway) Limiter() *security.RateLimiter { return g.limiter }

// Start binds the listener and serves in the background.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.server != nil {
		return errors.New("gateway: already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	g.startedAt = time.Now()
	g.listener = ln
	g.cancelBase = cancel
	g.server = &http.Server{
		Handler:           g.handler,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	srv := g.server
	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Stop shuts the server down gracefully within the configured timeout,
// then closes any WebSocket connection still open.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv, cancelBase := g.server, g.cancelBase
	g.mu.Unlock()
	if srv == nil {
		return nil
	}

	timeout := g.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	defer cancelBase()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}
