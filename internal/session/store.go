package session

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit sets the maximum number of exchanges kept per session.
// Non-positive values are ignored.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithActiveWindow sets the recency window reported by Stats.
func WithActiveWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.activeWindow = d
		}
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the authoritative registry of sessions. All methods are safe for
// concurrent use; every operation runs under a single store-wide mutex and
// never blocks on I/O while holding it. Returned sessions are copies.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout      time.Duration
	historyLimit int
	activeWindow time.Duration

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewStore creates an empty store whose sessions expire after timeout of
// inactivity. A non-positive timeout selects DefaultTimeout.
func NewStore(timeout time.Duration, opts ...Option) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Store{
		sessions:     make(map[string]*Session),
		timeout:      timeout,
		historyLimit: DefaultHistoryLimit,
		activeWindow: DefaultActiveWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the configured idle timeout.
func (s *Store) Timeout() time.Duration { return s.timeout }

// HistoryLimit returns the per-session history cap.
func (s *Store) HistoryLimit() int { return s.historyLimit }

// Create allocates a fresh id, installs a blank session under it and
// returns the id. It only fails if the OS entropy source is unavailable.
func (s *Store) Create() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("session: generating id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sid := id.String()
	s.sessions[sid] = s.blank(sid)
	return sid, nil
}

// Get returns the session for id. Unknown or expired ids are replaced by a
// blank session; a live session has its LastActivity refreshed.
func (s *Store) Get(id string) Session {
	sess, _ := s.Resolve(id)
	return sess
}

// Resolve behaves like Get and additionally reports whether the session was
// live, newly created for an unknown id, or recreated after expiry.
func (s *Store) Resolve(id string) (Session, Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, origin := s.resolveLocked(id)
	return sess.clone(), origin
}

// Update overwrites the allow-listed fields present in fields. Unknown keys
// and values of the wrong type are ignored; a nil value clears a string
// field. It returns false only when id is empty.
func (s *Store) Update(id string, fields Fields) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.resolveLocked(id)
	for key, value := range fields {
		switch key {
		case FieldLastIntent:
			setString(&sess.LastIntent, value)
		case FieldEmail:
			setString(&sess.Email, value)
		case FieldUserName:
			setString(&sess.UserName, value)
		case FieldNameAsked:
			if b, ok := value.(bool); ok {
				sess.NameAsked = b
			}
		}
	}
	s.touch(sess)
	return true
}

// AddHistory appends one exchange stamped with the current time, dropping
// the oldest entries beyond the history limit. It returns false only when id
// is empty.
func (s *Store) AddHistory(id, userMessage, botResponse, intent string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.resolveLocked(id)
	sess.History = append(sess.History, Exchange{
		UserMessage: userMessage,
		BotResponse: botResponse,
		Intent:      intent,
		Timestamp:   s.now(),
	})
	if over := len(sess.History) - s.historyLimit; over > 0 {
		sess.History = slices.Delete(sess.History, 0, over)
	}
	return true
}

// History returns up to limit of the most recent exchanges, oldest first.
func (s *Store) History(id string, limit int) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.resolveLocked(id)
	if limit <= 0 || len(sess.History) == 0 {
		return []Exchange{}
	}
	start := max(len(sess.History)-limit, 0)
	return slices.Clone(sess.History[start:])
}

// Clear removes the session for id. It reports whether a session existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// SweepExpired removes every session idle longer than the timeout and
// returns how many were removed.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats returns aggregate counts. It does not refresh any session.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Stats{
		TotalSessions: len(s.sessions),
		Timestamp:     now,
	}
	for _, sess := range s.sessions {
		if now.Sub(sess.LastActivity) < s.activeWindow {
			st.ActiveLast5Min++
		}
		st.TotalExchanges += len(sess.History)
	}
	return st
}

// Len returns the number of sessions currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// List returns summaries of all held sessions ordered by most recent
// activity. It does not refresh any session.
func (s *Store) List() []Summary {
	s.mu.Lock()
	out := make([]Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, Summary{
			ID:           sess.ID,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
			LastIntent:   sess.LastIntent,
			HasEmail:     sess.Email != "",
			HistoryLen:   len(sess.History),
		})
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// resolveLocked returns the live session for id, installing a blank one when
// the id is unknown or expired. The caller must hold s.mu.
func (s *Store) resolveLocked(id string) (*Session, Origin) {
	now := s.now()
	sess, ok := s.sessions[id]
	switch {
	case !ok:
		sess = s.blank(id)
		s.sessions[id] = sess
		return sess, OriginCreated
	case s.expired(sess, now):
		sess = s.blank(id)
		s.sessions[id] = sess
		return sess, OriginExpired
	default:
		s.touch(sess)
		return sess, OriginLive
	}
}

func (s *Store) blank(id string) *Session {
	now := s.now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		History:      []Exchange{},
	}
}

// touch moves LastActivity forward; it never moves it back.
func (s *Store) touch(sess *Session) {
	if now := s.now(); now.After(sess.LastActivity) {
		sess.LastActivity = now
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastActivity) > s.timeout
}

func setString(dst *string, value any) {
	switch v := value.(type) {
	case string:
		*dst = v
	case nil:
		*dst = ""
	}
}
