// Package app is the composition root shared by every parlo command: it
// loads configuration, wires the components and runs them.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/flemzord/parlo/internal/config"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Resolve is consulted and built-in defaults are used
	// when no file exists.
	ConfigPath string

	// Version is injected at build time via ldflags.
	Version string

	// Stderr receives logs when no log file is configured. Defaults to os.Stderr.
	Stderr io.Writer

	// Ready, if set, is called once the gateway is listening.
	Ready func(*App)
}

// LoadConfig reads and validates the configuration named by path. An empty
// path searches the standard locations; if none exists the defaults apply.
// The returned string is the path actually loaded, or "" for defaults.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := config.Resolve()
		if err != nil {
			cfg := config.Default()
			return cfg, "", config.Validate(cfg)
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run loads configuration, starts all components, and blocks until ctx is
// cancelled. Shutdown is bounded by the server shutdown timeout.
func Run(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	stderr := params.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	a, err := Build(ctx, cfg, params.Version, stderr)
	if err != nil {
		return err
	}
	if cfgPath == "" {
		a.Logger.Warn("no configuration file found, using defaults")
	} else {
		a.Logger.Info("configuration loaded", "path", cfgPath)
	}

	if err := a.Start(); err != nil {
		return errors.Join(err, a.Stop(context.Background()))
	}
	if params.Ready != nil {
		params.Ready(a)
	}

	<-ctx.Done()
	a.Logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	err = a.Stop(stopCtx)
	a.Logger.Info("shutdown complete")
	return err
}
