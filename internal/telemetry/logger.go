// Package telemetry builds the process logger and the OpenTelemetry tracer
// provider from configuration.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/security"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a redacting slog logger. Output goes to a rotated file
// when cfg.File is set and to fallback otherwise. The returned close
// function releases the file, if any.
func NewLogger(cfg config.LogConfig, fallback io.Writer, redactor *security.Redactor) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	out := fallback
	closeFn := func() error { return nil }
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = rotated
		closeFn = rotated.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		inner = slog.NewJSONHandler(out, opts)
	case "", "text":
		inner = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("telemetry: unknown log format %q", cfg.Format)
	}

	return slog.New(security.NewRedactingHandler(inner, redactor)), closeFn, nil
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
// The empty string selects info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("telemetry: unknown log level %q", name)
	}
	return level, nil
}

// AuditWriter opens the rotated audit trail named by cfg.AuditFile, or
// returns nil when auditing to a file is disabled.
func AuditWriter(cfg config.LogConfig) io.WriteCloser {
	if cfg.AuditFile == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.AuditFile,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
