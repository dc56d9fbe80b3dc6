package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/status"
)

func newPendingCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "pending",
		Aliases: []string{"check-pending-cms"},
		Short:   "List sent emails that still need a CMS note",
		Long: `List every recorded email that has not been confirmed by a CMS note yet,
grouped by email type. The ledger is not modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newServerContext(cmd.Context(), contextOptions{}, nil)
			if err != nil {
				return err
			}
			defer closeServerContext(sc)

			pending, err := sc.Reporter().Pending(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read pending emails: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(pending)
			}
			return status.RenderPending(cmd.OutOrStdout(), pending)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the pending entries as JSON")
	return cmd
}
