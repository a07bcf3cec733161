package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/session"
)

func TestCreateSession(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	rr := do(t, g.Handler(), http.MethodPost, "/session", nil, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}
	id := decode[map[string]string](t, rr)["session_id"]
	if id == "" {
		t.Fatal("empty session id")
	}
	if store.Len() != 1 {
		t.Errorf("store len = %d, want 1", store.Len())
	}
}

func TestGetSession_AutoVivifies(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	rr := do(t, g.Handler(), http.MethodGet, "/session/custom-id", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[session.Session](t, rr)
	if got.ID != "custom-id" || len(got.History) != 0 {
		t.Errorf("session = %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("store len = %d, want 1", store.Len())
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	id, _ := store.Create()
	for i := range 60 {
		store.AddHistory(id, fmt.Sprintf("msg %d", i), "ok", "echo")
	}

	type resp struct {
		SessionID string             `json:"session_id"`
		History   []session.Exchange `json:"history"`
	}

	tests := []struct {
		query     string
		wantLen   int
		wantFirst string
	}{
		{"", 10, "msg 50"},
		{"?limit=3", 3, "msg 57"},
		{"?limit=500", 50, "msg 10"},
	}
	for _, tt := range tests {
		rr := do(t, g.Handler(), http.MethodGet, "/session/"+id+"/history"+tt.query, nil, nil)
		got := decode[resp](t, rr)
		if len(got.History) != tt.wantLen {
			t.Errorf("%q: len = %d, want %d", tt.query, len(got.History), tt.wantLen)
			continue
		}
		if got.History[0].UserMessage != tt.wantFirst {
			t.Errorf("%q: first = %q, want %q", tt.query, got.History[0].UserMessage, tt.wantFirst)
		}
	}

	for _, bad := range []string{"?limit=0", "?limit=-1", "?limit=abc"} {
		rr := do(t, g.Handler(), http.MethodGet, "/session/"+id+"/history"+bad, nil, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", bad, rr.Code)
		}
	}
}

func TestClearSession(t *testing.T) {
	t.Parallel()

	archive := &fakeTranscripts{}
	g, store := newTestGateway(t, func(_ *config.ServerConfig, d *Deps) { d.Transcripts = archive })
	id, _ := store.Create()

	rr := do(t, g.Handler(), http.MethodDelete, "/session/"+id, nil, nil)
	if got := decode[map[string]bool](t, rr); !got["cleared"] {
		t.Errorf("first clear = %v, want cleared", got)
	}
	rr = do(t, g.Handler(), http.MethodDelete, "/session/"+id, nil, nil)
	if got := decode[map[string]bool](t, rr); got["cleared"] {
		t.Errorf("second clear = %v, want not cleared", got)
	}
	if len(archive.deleted) != 2 {
		t.Errorf("transcript purges = %d, want 2", len(archive.deleted))
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	id, _ := store.Create()
	store.AddHistory(id, "a", "b", "echo")

	rr := do(t, g.Handler(), http.MethodGet, "/stats", nil, nil)
	got := decode[session.Stats](t, rr)
	if got.TotalSessions != 1 || got.TotalExchanges != 1 || got.ActiveLast5Min != 1 {
		t.Errorf("stats = %+v", got)
	}
}

func TestSessionRoutes_InvalidID(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, nil)
	long := strings.Repeat("z", maxSessionIDLength+1)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/session/" + long},
		{http.MethodGet, "/session/" + long + "/history"},
		{http.MethodDelete, "/session/" + long},
		{http.MethodGet, "/session/bad.id"},
	} {
		rr := do(t, g.Handler(), tc.method, tc.path, nil, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tc.method, tc.path, rr.Code)
		}
	}
	if store.Len() != 0 {
		t.Errorf("invalid ids created %d sessions", store.Len())
	}
}

func TestValidSessionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"custom-id", true},
		{"a_B-9", true},
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{strings.Repeat("a", maxSessionIDLength), true},
		{strings.Repeat("a", maxSessionIDLength+1), false},
		{"with space", false},
		{"semi;colon", false},
		{"accentué", false},
	}
	for _, tt := range tests {
		if got := validSessionID(tt.id); got != tt.want {
			t.Errorf("validSessionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
