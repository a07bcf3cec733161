package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/flemzord/parlo/internal/responder"
	"github.com/flemzord/parlo/pkg/app"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var (
		sessionID string
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Talk to the responder from the terminal",
		Long: "With a message argument, print one reply and exit. Without, read one message " +
			"per line from stdin and keep the conversation going until EOF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			if !verbose {
				cfg.Log.Level = "error"
			}
			cfg.Log.File = ""

			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := app.Build(ctx, cfg, version, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Stop(context.Background()) }()

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				reply, err := a.Responder.Reply(ctx, responder.Request{
					SessionID: sessionID,
					Message:   strings.Join(args, " "),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, reply.Text)
				if verbose {
					fmt.Fprintf(out, "(session %s, intent %s)\n", reply.SessionID, reply.Intent)
				}
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				reply, err := a.Responder.Reply(ctx, responder.Request{SessionID: sessionID, Message: line})
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
					continue
				}
				sessionID = reply.SessionID
				fmt.Fprintln(out, reply.Text)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to continue")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show logs, session id and intent")
	return cmd
}
