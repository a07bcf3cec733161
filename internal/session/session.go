// Package session holds per-user conversational state in a concurrency-safe,
// TTL-based store. Unknown or expired ids are never reported as missing: a
// lookup silently installs a blank session under the requested id.
package session

import (
	"slices"
	"time"
)

const (
	// DefaultTimeout is the idle duration after which a session expires.
	DefaultTimeout = 30 * time.Minute

	// DefaultHistoryLimit is the number of exchanges kept per session.
	DefaultHistoryLimit = 50

	// DefaultActiveWindow is the recency window used by Stats.ActiveLast5Min.
	DefaultActiveWindow = 5 * time.Minute
)

// Updatable field names accepted by Store.Update.
const (
	FieldLastIntent = "last_intent"
	FieldEmail      = "email"
	FieldUserName   = "user_name"
	FieldNameAsked  = "name_asked"
)

// Exchange is one user-message/bot-response pair.
type Exchange struct {
	UserMessage string    `json:"user"`
	BotResponse string    `json:"bot"`
	Intent      string    `json:"intent,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Session is one user's conversational state. Empty strings mean "unset".
type Session struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
	LastIntent   string     `json:"last_intent,omitempty"`
	Email        string     `json:"email,omitempty"`
	UserName     string     `json:"user_name,omitempty"`
	NameAsked    bool       `json:"name_asked"`
	History      []Exchange `json:"history"`
}

// clone returns a deep copy safe to hand out of the store.
func (s *Session) clone() Session {
	cp := *s
	cp.History = slices.Clone(s.History)
	if cp.History == nil {
		cp.History = []Exchange{}
	}
	return cp
}

// Fields is a partial update for Store.Update. Only the Field* keys are
// honoured; anything else is ignored.
type Fields map[string]any

// Origin tells how Resolve obtained the returned session.
type Origin int

const (
	// OriginLive means the session existed and was still within its timeout.
	OriginLive Origin = iota
	// OriginCreated means no session existed under the id.
	OriginCreated
	// OriginExpired means an idle session was replaced by a blank one.
	OriginExpired
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	switch o {
	case OriginLive:
		return "live"
	case OriginCreated:
		return "created"
	case OriginExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time aggregate view of the store.
type Stats struct {
	TotalSessions  int       `json:"total_sessions"`
	ActiveLast5Min int       `json:"active_last_5min"`
	TotalExchanges int       `json:"total_conversation_exchanges"`
	Timestamp      time.Time `json:"timestamp"`
}

// Summary is a lightweight session listing entry for admin views.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	LastIntent   string    `json:"last_intent,omitempty"`
	HasEmail     bool      `json:"has_email"`
	HistoryLen   int       `json:"history_len"`
}
