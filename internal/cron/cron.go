// Package cron runs periodic background jobs such as the idle-session sweep
// and transcript retention. Jobs run independently of request handling; a
// failing or panicking run is logged and the next tick runs as usual.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "*/5 * * * *") or a
	// descriptor such as "@hourly" or "@every 1h".
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
