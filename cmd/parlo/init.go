package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/parlo/internal/config"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var (
		output      string
		force       bool
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			cfg := config.Default()
			if interactive {
				if err := runWizard(cfg); err != nil {
					return err
				}
				cfg.ApplyDefaults()
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			raw, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, raw, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.FileName, "File to write")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", true, "Ask questions instead of writing defaults")
	return cmd
}

// runWizard asks for the settings most deployments change and stores the
// answers in cfg.
func runWizard(cfg *config.Config) error {
	var (
		timeout   = cfg.Session.Timeout.String()
		threshold = strconv.FormatFloat(cfg.Classifier.Threshold, 'f', -1, 64)
		token     = cfg.Server.Auth.BearerToken
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Description("host:port for the HTTP gateway").
				Value(&cfg.Server.Bind).
				Validate(func(s string) error {
					_, _, err := net.SplitHostPort(s)
					return err
				}),
			huh.NewInput().
				Title("Session idle timeout").
				Description("e.g. 30m, 1h").
				Value(&timeout).
				Validate(validDuration),
			huh.NewInput().
				Title("Classifier confidence threshold").
				Description("Between 0 and 1; below it the previous intent is reused").
				Value(&threshold).
				Validate(validRatio),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Archive every exchange to SQLite?").
				Value(&cfg.Transcript.Enabled),
			huh.NewInput().
				Title("Admin API bearer token").
				Description("Leave empty to keep the admin API disabled").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("text", "json")...).
				Value(&cfg.Log.Format),
			huh.NewSelect[string]().
				Title("Trace exporter").
				Options(huh.NewOptions("none", "stdout", "otlp")...).
				Value(&cfg.Telemetry.Tracing.Exporter),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Telemetry.Tracing.Exporter == "otlp" {
		endpoint := "http://localhost:4318"
		err := huh.NewInput().
			Title("OTLP endpoint").
			Value(&endpoint).
			Run()
		if err != nil {
			return err
		}
		cfg.Telemetry.Tracing.Endpoint = endpoint
	}

	cfg.Session.Timeout, _ = time.ParseDuration(timeout)
	cfg.Classifier.Threshold, _ = strconv.ParseFloat(threshold, 64)
	cfg.Server.Auth.BearerToken = token
	return nil
}

func validDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func validRatio(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("not a number")
	}
	if f < 0 || f > 1 {
		return errors.New("must be between 0 and 1")
	}
	return nil
}
