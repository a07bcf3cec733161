package cron

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// slogLogger adapts *slog.Logger to cron.Logger so robfig's own diagnostics
// end up in the application log.
type slogLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = slogLogger{}

// Info implements cron.Logger. robfig reports every wake-up at info; those
// go to debug.
func (l slogLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l slogLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
