package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/status"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the operator session used for session statistics",
		Long: `A session starts with "cmsledger session start", or with the first email
recorded when no session exists yet. It lasts until the next "session start",
so "sent this session" counts emails across every command run in between.`,
	}
	cmd.AddCommand(newSessionStartCmd())
	cmd.AddCommand(newSessionShowCmd())
	return cmd
}

func newSessionStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new session now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now().UTC()
			if err := status.SaveSessionStart(sessionFilePath(), start); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session started at %s\n", start.Format(time.RFC3339))
			return nil
		},
	}
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print when the current session started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sessionStart != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Session started at %s (--session-start)\n", opts.sessionStart)
				return nil
			}
			start, err := status.LoadSessionStart(sessionFilePath())
			if errors.Is(err, status.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "No session started")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session started at %s\n", start.Format(time.RFC3339))
			return nil
		},
	}
}
