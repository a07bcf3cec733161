package main

import (
	"context"
	"os"

	"github.com/flemzord/parlo/internal/mcpserver"
	"github.com/flemzord/parlo/pkg/app"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the responder as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			// stdout carries the protocol; logs stay on stderr.
			a, err := app.Build(ctx, cfg, version, os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Stop(context.Background()) }()

			if err := a.Scheduler.Start(); err != nil {
				return err
			}
			srv := mcpserver.New(a.Responder, a.Store, version, a.Logger)
			return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
