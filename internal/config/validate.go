package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/flemzord/parlo/internal/cron"
)

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	exporterKinds = []string{"none", "stdout", "otlp"}
)

// Validate checks the structural validity of a Config and reports every
// problem found, not just the first.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: %q)", cfg.Version, CurrentVersion))
	}

	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateSession(cfg.Session)...)

	if err := cron.ValidateSchedule(cfg.Reaper.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("config: reaper.schedule: %w", err))
	}

	if t := cfg.Classifier.Threshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("config: classifier.threshold must be within [0,1], got %v", t))
	}

	if cfg.Transcript.Enabled {
		if cfg.Transcript.Path == "" {
			errs = append(errs, errors.New("config: transcript.path is required when transcript is enabled"))
		}
		if cfg.Transcript.Retention < 0 {
			errs = append(errs, errors.New("config: transcript.retention must not be negative"))
		}
		if err := cron.ValidateSchedule(cfg.Transcript.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: transcript.schedule: %w", err))
		}
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTracing(cfg.Telemetry.Tracing)...)

	return errors.Join(errs...)
}

func validateServer(s ServerConfig) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(s.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: server.bind %q: %w", s.Bind, err))
	}
	if s.MaxMessageLength < 0 {
		errs = append(errs, errors.New("config: server.max_message_length must not be negative"))
	}
	if s.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("config: server.rate_limit.requests_per_second must not be negative"))
	}
	if (s.Auth.BasicUser == "") != (s.Auth.BasicPass == "") {
		errs = append(errs, errors.New("config: server.auth.basic_user and basic_pass must be set together"))
	}
	return errs
}

func validateSession(s SessionConfig) []error {
	var errs []error
	if s.Timeout < 0 {
		errs = append(errs, errors.New("config: session.timeout must not be negative"))
	}
	if s.HistoryLimit < 0 {
		errs = append(errs, errors.New("config: session.history_limit must not be negative"))
	}
	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	if !slices.Contains(logLevels, strings.ToLower(l.Level)) {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of %v", l.Level, logLevels))
	}
	if !slices.Contains(logFormats, strings.ToLower(l.Format)) {
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of %v", l.Format, logFormats))
	}
	return errs
}

func validateTracing(t TracingConfig) []error {
	var errs []error
	if !slices.Contains(exporterKinds, t.Exporter) {
		errs = append(errs, fmt.Errorf("config: telemetry.tracing.exporter %q is not one of %v", t.Exporter, exporterKinds))
	}
	if t.Exporter == "otlp" && t.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.tracing.endpoint is required for the otlp exporter"))
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.tracing.sample_ratio must be within [0,1], got %v", t.SampleRatio))
	}
	return errs
}
