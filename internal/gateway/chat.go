package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/flemzord/parlo/internal/responder"
	"github.com/flemzord/parlo/internal/security"
)

// chatRequest is the body of POST /chat and of every /ws frame.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// handleChat answers one message. The session id comes from the body,
// then the X-Session-ID header; without either a new session is started.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := security.DecodeJSON(r.Body, security.DefaultMaxBodySize, &req); err != nil {
			if errors.Is(err, security.ErrBodyTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SessionID == "" {
			req.SessionID = r.Header.Get(sessionHeader)
		}

		reply, status, err := g.reply(r.Context(), req)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
		w.Header().Set(sessionHeader, reply.SessionID)
		writeJSON(w, http.StatusOK, reply)
	}
}

// reply runs the responder and maps its errors to an HTTP status and a
// client-safe error.
func (g *Gateway) reply(ctx context.Context, req chatRequest) (responder.Reply, int, error) {
	if req.SessionID != "" && !validSessionID(req.SessionID) {
		g.deps.Metrics.ObserveError("invalid_session_id")
		return responder.Reply{}, http.StatusBadRequest, errInvalidSessionID
	}
	reply, err := g.deps.Responder.Reply(ctx, responder.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
		Name:      req.Name,
	})
	switch {
	case err == nil:
		return reply, http.StatusOK, nil
	case errors.Is(err, responder.ErrEmptyMessage), errors.Is(err, responder.ErrMessageTooLong):
		return reply, http.StatusBadRequest, err
	default:
		g.logger.Error("reply failed", "session", req.SessionID, "error", err)
		return reply, http.StatusInternalServerError, errors.New("internal error")
	}
}

// handleWebSocket serves a chat over one connection: a chatRequest per
// text frame in, a reply (or errorResponse) per frame out. The session id
// sticks to the connection once the first reply assigns it.
func (g *Gateway) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID != "" && !validSessionID(sessionID) {
			writeError(w, http.StatusBadRequest, errInvalidSessionID.Error())
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(g.config.CORSOrigins),
		})
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()
		conn.SetReadLimit(security.DefaultMaxBodySize)

		ctx := r.Context()
		ip := clientIP(r)

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
					return
				}
				if ctx.Err() != nil {
					_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
					return
				}
				g.logger.Debug("websocket read ended", "error", err)
				return
			}

			var req chatRequest
			if err := json.Unmarshal(data, &req); err != nil {
				g.writeFrame(ctx, conn, errorResponse{Error: "invalid JSON frame"})
				continue
			}
			if !g.limiter.Allow(ip) {
				g.deps.Metrics.ObserveError("rate_limited")
				g.writeFrame(ctx, conn, errorResponse{Error: "too many requests"})
				continue
			}
			if req.SessionID == "" {
				req.SessionID = sessionID
			}

			reply, _, err := g.reply(ctx, req)
			if err != nil {
				g.writeFrame(ctx, conn, errorResponse{Error: err.Error()})
				continue
			}
			sessionID = reply.SessionID
			g.writeFrame(ctx, conn, reply)
		}
	}
}

func (g *Gateway) writeFrame(ctx context.Context, conn *websocket.Conn, v any) {
	if err := wsjson.Write(ctx, conn, v); err != nil {
		g.logger.Debug("websocket write failed", "error", err)
	}
}

// originPatterns converts CORS origins into the host patterns the
// WebSocket handshake checks against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" || !strings.Contains(o, "://") {
			patterns = append(patterns, o)
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
