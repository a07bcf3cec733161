package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/responder"
	"github.com/flemzord/parlo/internal/session"
	"github.com/flemzord/parlo/internal/transcript"
)

// echoReplier answers "echo: <message>" and records the exchange in the
// store, standing in for the real responder.
type echoReplier struct {
	store *session.Store
	err   error
}

func (e *echoReplier) Reply(_ context.Context, req responder.Request) (responder.Reply, error) {
	if e.err != nil {
		return responder.Reply{}, e.err
	}
	if strings.TrimSpace(req.Message) == "" {
		return responder.Reply{}, responder.ErrEmptyMessage
	}
	id := req.SessionID
	if id == "" {
		var err error
		if id, err = e.store.Create(); err != nil {
			return responder.Reply{}, err
		}
	}
	text := "echo: " + req.Message
	e.store.AddHistory(id, req.Message, text, "echo")
	return responder.Reply{SessionID: id, Text: text, Intent: "echo"}, nil
}

// fakeTranscripts records purges and requested limits, and serves canned
// records.
type fakeTranscripts struct {
	mu      sync.Mutex
	records []transcript.Record
	deleted []string
	limits  []int
}

func (f *fakeTranscripts) Recent(_ context.Context, sessionID string, n int) ([]transcript.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, n)
	var out []transcript.Record
	for _, r := range f.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (f *fakeTranscripts) DeleteSession(_ context.Context, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	return 1, nil
}

// fakeTrigger records triggered job names.
type fakeTrigger struct {
	mu    sync.Mutex
	names []string
	err   error
	run   func()
}

func (f *fakeTrigger) Trigger(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if f.run != nil {
		f.run()
	}
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway builds a gateway over a real store. mutate may adjust the
// server config and deps before construction.
func newTestGateway(t *testing.T, mutate func(*config.ServerConfig, *Deps)) (*Gateway, *session.Store) {
	t.Helper()

	store := session.NewStore(30 * time.Minute)
	cfg := config.Default().Server
	deps := Deps{
		Responder: &echoReplier{store: store},
		Sessions:  store,
		Intents:   []string{"salutation", "unknown"},
		Logger:    discardLogger(),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	g, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, store
}

// do sends a request through the full router.
func do(t *testing.T, h http.Handler, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}
