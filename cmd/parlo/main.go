// Package main is the entry point for the parlo CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parlo",
		Short:         "A conversational responder with an HTTP and WebSocket chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(
		versionCmd(),
		serveCmd(),
		askCmd(),
		initCmd(),
		configCmd(),
		mcpCmd(),
		serviceCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "parlo %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			return app.Run(ctx, app.RunParams{
				ConfigPath: configPath(cmd),
				Version:    version,
				Stderr:     cmd.ErrOrStderr(),
			})
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			if len(args) == 1 {
				path = args[0]
			}
			cfg, used, err := app.LoadConfig(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if used == "" {
				fmt.Fprintln(out, "No configuration file found; built-in defaults are valid.")
			} else {
				fmt.Fprintf(out, "Configuration OK (%s)\n", used)
			}
			printSummary(cmd, cfg)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration search path",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range config.Candidates() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	})
	return cmd
}

func printSummary(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  bind:        %s\n", cfg.Server.Bind)
	fmt.Fprintf(out, "  session:     timeout %s, history %d\n", cfg.Session.Timeout, cfg.Session.HistoryLimit)
	fmt.Fprintf(out, "  reaper:      %s\n", cfg.Reaper.Schedule)
	fmt.Fprintf(out, "  admin api:   %t\n", cfg.Server.Auth.IsConfigured())
	if cfg.Transcript.Enabled {
		fmt.Fprintf(out, "  transcripts: %s\n", cfg.Transcript.Path)
	} else {
		fmt.Fprintln(out, "  transcripts: disabled")
	}
	fmt.Fprintf(out, "  tracing:     %s\n", cfg.Telemetry.Tracing.Exporter)
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	return p
}

// signalContext is the command context cancelled on SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
