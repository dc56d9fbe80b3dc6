package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/status"
)

func newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reconcile",
		Aliases: []string{"add-session-cms-notes"},
		Short:   "Add CMS notes for every pending email",
		Long: `Add a confirmation note to the CMS case of every pending email. Entries the
CMS confirms move to the processed log; entries that fail stay pending and are
retried on the next run. The command exits non-zero when any entry failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newServerContext(cmd.Context(), contextOptions{requireCMS: true}, nil)
			if err != nil {
				return err
			}
			defer closeServerContext(sc)

			out, runErr := sc.Reconciler().ProcessPending(cmd.Context())
			if runErr != nil && out.Attempted == 0 {
				return fmt.Errorf("failed to add CMS notes: %w", runErr)
			}
			if err := status.RenderOutcome(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if out.Failed > 0 {
				return fmt.Errorf("%d email(s) still need CMS notes", out.Failed)
			}
			return nil
		},
	}
	return cmd
}
