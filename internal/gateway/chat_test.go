package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/responder"
)

type panicReplier struct{}

func (panicReplier) Reply(context.Context, responder.Request) (responder.Reply, error) {
	panic("responder exploded")
}

func TestChat_NewSession(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	rr := do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "bonjour"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	reply := decode[responder.Reply](t, rr)
	if reply.SessionID == "" {
		t.Fatal("missing session id")
	}
	if reply.Text != "echo: bonjour" || reply.Intent != "echo" {
		t.Errorf("reply = %+v", reply)
	}
	if got := rr.Header().Get(sessionHeader); got != reply.SessionID {
		t.Errorf("%s header = %q, want %q", sessionHeader, got, reply.SessionID)
	}
	if h := store.History(reply.SessionID, 10); len(h) != 1 {
		t.Errorf("history len = %d, want 1", len(h))
	}
}

func TestChat_SessionFromBodyAndHeader(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	id, _ := store.Create()

	rr := do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "un", SessionID: id}, nil)
	if got := decode[responder.Reply](t, rr).SessionID; got != id {
		t.Errorf("body session = %q, want %q", got, id)
	}

	rr = do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "deux"}, http.Header{sessionHeader: {id}})
	if got := decode[responder.Reply](t, rr).SessionID; got != id {
		t.Errorf("header session = %q, want %q", got, id)
	}
	if h := store.History(id, 10); len(h) != 2 {
		t.Errorf("history len = %d, want 2", len(h))
	}
}

func TestChat_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed", `{"message":`, http.StatusBadRequest},
		{"unknown field", `{"msg":"salut"}`, http.StatusBadRequest},
		{"empty message", chatRequest{Message: "   "}, http.StatusBadRequest},
		{"too large", `{"message":"` + strings.Repeat("a", 70<<10) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, _ := newTestGateway(t, nil)
			rr := do(t, g.Handler(), http.MethodPost, "/chat", tt.body, nil)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if e := decode[errorResponse](t, rr); e.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestChat_InternalErrorHidden(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	g.deps.Responder = &echoReplier{store: store, err: errors.New("disk on fire at /var/lib/parlo")}

	rr := do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "salut"}, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Errorf("internal error leaked: %s", rr.Body.String())
	}
}

func dialWS(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func TestWebSocket_RoundTrip(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	conn, ctx := dialWS(t, srv, "")

	if err := wsjson.Write(ctx, conn, chatRequest{Message: "bonjour"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var first responder.Reply
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.SessionID == "" || first.Text != "echo: bonjour" {
		t.Fatalf("first reply = %+v", first)
	}

	// The session sticks to the connection.
	if err := wsjson.Write(ctx, conn, chatRequest{Message: "encore"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var second responder.Reply
	if err := wsjson.Read(ctx, conn, &second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session changed: %q -> %q", first.SessionID, second.SessionID)
	}
	if h := store.History(first.SessionID, 10); len(h) != 2 {
		t.Errorf("history len = %d, want 2", len(h))
	}
}

func TestWebSocket_ErrorsKeepConnection(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	id, _ := store.Create()
	conn, ctx := dialWS(t, srv, "?session_id="+id)

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var e errorResponse
	if err := wsjson.Read(ctx, conn, &e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.Error == "" {
		t.Error("expected an error frame")
	}

	if err := wsjson.Write(ctx, conn, chatRequest{Message: ""}); err != nil {
		t.Fatalf("write: %v", err)
	}
	e = errorResponse{}
	if err := wsjson.Read(ctx, conn, &e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(e.Error, "empty") {
		t.Errorf("error = %q, want empty-message error", e.Error)
	}

	if err := wsjson.Write(ctx, conn, chatRequest{Message: "ok"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply responder.Reply
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.SessionID != id {
		t.Errorf("session = %q, want query session %q", reply.SessionID, id)
	}
}

func TestWebSocket_ClosedOnStop(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, func(cfg *config.ServerConfig, _ *Deps) {
		cfg.Bind = "127.0.0.1:0"
		cfg.ShutdownTimeout = time.Second
	})
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+g.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = conn.CloseNow() }()

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected the connection to be closed after Stop")
	}
}

func TestChat_InvalidSessionID(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	long := strings.Repeat("a", maxSessionIDLength+1)

	tests := []struct {
		name   string
		body   chatRequest
		header http.Header
	}{
		{"body too long", chatRequest{Message: "un", SessionID: long}, nil},
		{"body bad characters", chatRequest{Message: "un", SessionID: "a b/c"}, nil},
		{"header too long", chatRequest{Message: "un"}, http.Header{sessionHeader: {long}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, g.Handler(), http.MethodPost, "/chat", tt.body, tt.header)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
	if store.Len() != 0 {
		t.Errorf("invalid ids created %d sessions", store.Len())
	}

	// The longest accepted id still works.
	ok := strings.Repeat("b", maxSessionIDLength)
	rr := do(t, g.Handler(), http.MethodPost, "/chat", chatRequest{Message: "un", SessionID: ok}, nil)
	if got := decode[responder.Reply](t, rr).SessionID; got != ok {
		t.Errorf("session = %q, want %q", got, ok)
	}
}

func TestWebSocket_InvalidSessionID(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session_id=" + strings.Repeat("x", maxSessionIDLength+1)
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("response = %v, want 400", resp)
	}

	conn, ctx := dialWS(t, srv, "")
	if err := wsjson.Write(ctx, conn, chatRequest{Message: "un", SessionID: "no spaces"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var e errorResponse
	if err := wsjson.Read(ctx, conn, &e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.Error != errInvalidSessionID.Error() {
		t.Errorf("error = %q", e.Error)
	}
	if store.Len() != 0 {
		t.Errorf("invalid ids created %d sessions", store.Len())
	}
}
