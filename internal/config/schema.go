// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for parlo.
package config

import "time"

// CurrentVersion is the only supported config format version.
const CurrentVersion = "1"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Reaper     ReaperConfig     `yaml:"reaper"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Bind             string          `yaml:"bind"`
	ReadTimeout      time.Duration   `yaml:"read_timeout"`
	WriteTimeout     time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout  time.Duration   `yaml:"shutdown_timeout"`
	MaxMessageLength int             `yaml:"max_message_length"`
	CORSOrigins      []string        `yaml:"cors_origins"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
	Auth             AuthConfig      `yaml:"auth"`
}

// RateLimitConfig is a per-client-IP token bucket. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// SessionConfig configures the in-memory session store.
type SessionConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	HistoryLimit int           `yaml:"history_limit"`
	ActiveWindow time.Duration `yaml:"active_window"`
}

// ReaperConfig configures the idle-session sweep.
type ReaperConfig struct {
	// Schedule is a cron expression or descriptor, e.g. "@every 1h".
	Schedule string `yaml:"schedule"`
}

// ClassifierConfig configures the intent classifier.
type ClassifierConfig struct {
	// IntentsPath overrides the embedded intent table when set.
	IntentsPath string  `yaml:"intents_path"`
	Threshold   float64 `yaml:"threshold"`
}

// TranscriptConfig configures the SQLite exchange archive.
type TranscriptConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
	Schedule  string        `yaml:"schedule"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	// File enables rotated file output; empty logs to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	// AuditFile receives admin audit events as JSONL; empty disables it.
	AuditFile string `yaml:"audit_file"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"` // none, stdout, otlp
	Endpoint    string  `yaml:"endpoint"`
	File        string  `yaml:"file"`
	SampleRatio float64 `yaml:"sample_ratio"`
}
