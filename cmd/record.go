package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/tracker"
)

func newRecordCmd() *cobra.Command {
	var sent tracker.SentEmail

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an email that was sent outside cmsledger",
		Long: `Record an already sent email as pending so the next reconcile adds its CMS
note. Use this for emails sent by hand, or when 'cmsledger send' delivered an
email but could not record it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newServerContext(cmd.Context(), contextOptions{beginSession: true}, nil)
			if err != nil {
				return err
			}
			defer closeServerContext(sc)

			sent.TestMode = opts.testMode
			entry, err := sc.Tracker().RecordSent(cmd.Context(), sent)
			if err != nil {
				return fmt.Errorf("failed to record email: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded email to %s for case %s (entry %s). Run 'cmsledger reconcile' to add the CMS note.\n",
				entry.Recipient, entry.CaseID, entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sent.Recipient, "recipient", "", "Address the email was delivered to (required)")
	cmd.Flags().StringVar(&sent.CaseID, "case-id", "", "Case ID (required)")
	cmd.Flags().StringVar(&sent.ProcessID, "process-id", "", "Process ID from the case sheet")
	cmd.Flags().StringVar(&sent.EmailType, "email-type", tracker.DefaultEmailType, "Kind of email, e.g. follow_up or status_request")
	cmd.Flags().StringVar(&sent.IntendedRecipient, "intended-recipient", "", "Original recipient of a redirected test-mode email")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("case-id")
	return cmd
}
