package config

import "time"

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	c.Server.defaults()
	c.Session.defaults()
	if c.Reaper.Schedule == "" {
		c.Reaper.Schedule = "@every 1h"
	}
	if c.Classifier.Threshold == 0 {
		c.Classifier.Threshold = 0.3
	}
	c.Transcript.defaults()
	c.Log.defaults()
	c.Telemetry.Tracing.defaults()
}

func (s *ServerConfig) defaults() {
	if s.Bind == "" {
		s.Bind = "127.0.0.1:5000"
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 10 * time.Second
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 30 * time.Second
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = 5 * time.Second
	}
	if s.MaxMessageLength <= 0 {
		s.MaxMessageLength = 1000
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	if s.RateLimit.RequestsPerSecond > 0 && s.RateLimit.Burst <= 0 {
		s.RateLimit.Burst = max(1, int(s.RateLimit.RequestsPerSecond))
	}
}

func (s *SessionConfig) defaults() {
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Minute
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = 50
	}
	if s.ActiveWindow <= 0 {
		s.ActiveWindow = 5 * time.Minute
	}
}

func (t *TranscriptConfig) defaults() {
	if t.Path == "" {
		t.Path = "parlo.db"
	}
	if t.Schedule == "" {
		t.Schedule = "@daily"
	}
}

func (l *LogConfig) defaults() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
	if l.MaxSizeMB <= 0 {
		l.MaxSizeMB = 100
	}
	if l.MaxBackups <= 0 {
		l.MaxBackups = 3
	}
	if l.MaxAgeDays <= 0 {
		l.MaxAgeDays = 28
	}
}

func (t *TracingConfig) defaults() {
	if t.Exporter == "" {
		t.Exporter = "none"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1
	}
	if t.Exporter == "stdout" && t.File == "" {
		t.File = "parlo-traces.jsonl"
	}
}
