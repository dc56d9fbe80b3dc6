package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/tracker"
)

func newSendCmd() *cobra.Command {
	var (
		out       gmail.Outgoing
		bodyFile  string
		tokenFile string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a case email through Gmail and record it as pending",
		Long: `Send one case email through Gmail and record it as pending before reporting
success. In test mode the email goes to the test inbox with the original
recipient in the subject.

If Gmail accepts the email but recording fails, the command fails with the
Gmail message ID so the email can be recorded with 'cmsledger record'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("failed to read body file: %w", err)
				}
				out.Body = string(data)
			}
			if out.Body == "" {
				return fmt.Errorf("an email body is required: use --body or --body-file")
			}

			client, err := newGmailClient(cmd.Context(), googleConfig(tokenFile), nil)
			if err != nil {
				return err
			}

			sc, err := newServerContext(cmd.Context(), contextOptions{beginSession: true, mailer: client}, nil)
			if err != nil {
				return err
			}
			defer closeServerContext(sc)

			res, err := sc.Sender().Send(cmd.Context(), out)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Entry.TestMode {
				fmt.Fprintf(w, "🧪 TEST MODE: sent to %s (intended for %s)\n", res.Entry.Recipient, res.Entry.IntendedRecipient)
			} else {
				fmt.Fprintf(w, "Sent to %s\n", res.Entry.Recipient)
			}
			fmt.Fprintf(w, "Gmail message %s recorded for case %s (entry %s)\n", res.MessageID, res.Entry.CaseID, res.Entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&out.To, "to", "", "Recipient address (required)")
	cmd.Flags().StringSliceVar(&out.Cc, "cc", nil, "CC addresses (dropped in test mode)")
	cmd.Flags().StringVar(&out.Subject, "subject", "", "Email subject (required)")
	cmd.Flags().StringVar(&out.Body, "body", "", "Email body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the email body from a file")
	cmd.Flags().BoolVar(&out.IsHTML, "html", false, "Send the body as HTML")
	cmd.Flags().StringVar(&out.CaseID, "case-id", "", "Case ID (required)")
	cmd.Flags().StringVar(&out.ProcessID, "process-id", "", "Process ID from the case sheet")
	cmd.Flags().StringVar(&out.EmailType, "email-type", tracker.DefaultEmailType, "Kind of email, e.g. follow_up or status_request")
	addGoogleFlags(cmd, &tokenFile)
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("case-id")
	return cmd
}
