package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job names, usable with Scheduler.Trigger.
const (
	SessionSweepJobName        = "session_sweep"
	TranscriptRetentionJobName = "transcript_retention"
	LimiterPruneJobName        = "ratelimit_prune"
)

// SessionSweeper is the subset of session.Store needed by SessionSweepJob.
type SessionSweeper interface {
	SweepExpired() int
}

// BucketPruner is the subset of security.RateLimiter needed by
// LimiterPruneJob.
type BucketPruner interface {
	Prune(idle time.Duration) int
}

// TranscriptPruner is the subset of transcript.Archive needed by
// TranscriptRetentionJob.
type TranscriptPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionSweepJob evicts sessions idle longer than the store timeout.
type SessionSweepJob struct {
	Store        SessionSweeper
	Logger       *slog.Logger
	OnSweep      func(removed int) // optional, e.g. a metrics counter
	ScheduleExpr string            // empty = default "@every 1h"
}

// Compile-time interface check.
var _ Job = (*SessionSweepJob)(nil)

// Name implements Job.
func (j *SessionSweepJob) Name() string { return SessionSweepJobName }

// Schedule implements Job.
func (j *SessionSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@every 1h"
}

// Run sweeps expired sessions.
func (j *SessionSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: session sweep cancelled: %w", ctx.Err())
	}
	removed := j.Store.SweepExpired()
	if j.OnSweep != nil {
		j.OnSweep(removed)
	}
	if removed > 0 {
		j.logger().Info("cron: swept expired sessions", "count", removed)
	} else {
		j.logger().Debug("cron: no expired sessions")
	}
	return nil
}

func (j *SessionSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// TranscriptRetentionJob deletes archived exchanges older than MaxAge.
type TranscriptRetentionJob struct {
	Archive      TranscriptPruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "@daily"

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// Compile-time interface check.
var _ Job = (*TranscriptRetentionJob)(nil)

// Name implements Job.
func (j *TranscriptRetentionJob) Name() string { return TranscriptRetentionJobName }

// Schedule implements Job.
func (j *TranscriptRetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@daily"
}

// Run prunes exchanges recorded before now-MaxAge. A non-positive MaxAge
// keeps everything.
func (j *TranscriptRetentionJob) Run(ctx context.Context) error {
	if j.MaxAge <= 0 {
		return nil
	}
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	cutoff := now().Add(-j.MaxAge)

	n, err := j.Archive.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: pruning transcripts: %w", err)
	}
	if n > 0 {
		logger := j.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("cron: pruned transcript rows", "count", n, "cutoff", cutoff)
	}
	return nil
}

// LimiterPruneJob forgets rate-limit buckets of clients not seen for Idle.
type LimiterPruneJob struct {
	Limiter BucketPruner
	Idle    time.Duration // zero = 10m
	Logger  *slog.Logger
}

// Compile-time interface check.
var _ Job = (*LimiterPruneJob)(nil)

// Name implements Job.
func (j *LimiterPruneJob) Name() string { return LimiterPruneJobName }

// Schedule implements Job.
func (j *LimiterPruneJob) Schedule() string { return "@every 10m" }

// Run drops idle buckets.
func (j *LimiterPruneJob) Run(_ context.Context) error {
	idle := j.Idle
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	if n := j.Limiter.Prune(idle); n > 0 && j.Logger != nil {
		j.Logger.Debug("cron: pruned rate-limit buckets", "count", n)
	}
	return nil
}
