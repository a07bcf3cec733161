package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/parlo/internal/metrics"
	"github.com/flemzord/parlo/internal/responder"
	"github.com/flemzord/parlo/internal/security"
	"github.com/flemzord/parlo/internal/session"
	"github.com/flemzord/parlo/internal/transcript"
)

// Replier turns a chat request into a reply.
type Replier interface {
	Reply(ctx context.Context, req responder.Request) (responder.Reply, error)
}

// Sessions is the subset of session.Store the gateway serves.
type Sessions interface {
	Create() (string, error)
	Get(id string) session.Session
	History(id string, limit int) []session.Exchange
	Clear(id string) bool
	Stats() session.Stats
	Len() int
	List() []session.Summary
	Timeout() time.Duration
	HistoryLimit() int
}

// Transcripts is the subset of transcript.Archive the gateway serves.
type Transcripts interface {
	Recent(ctx context.Context, sessionID string, n int) ([]transcript.Record, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}

// JobTrigger runs a scheduled job immediately.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) error
}

// Deps are the collaborators the gateway serves. Responder and Sessions
// are required; everything else degrades gracefully when nil.
type Deps struct {
	Responder Replier
	Sessions  Sessions
	// Intents lists the classifier tags, reported by /health.
	Intents []string
	// Threshold is the classifier confidence threshold, reported by /api/status.
	Threshold float64

	Transcripts Transcripts
	Jobs        JobTrigger
	// SweepJob is the job POST /api/sweep triggers. Defaults to "session_sweep".
	SweepJob string

	Metrics  *metrics.Metrics
	Audit    *security.AuditLogger
	Redactor *security.Redactor
	// Settings returns the effective configuration for GET /api/config.
	Settings func() (map[string]any, error)

	Logger *slog.Logger
}
