package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		tokenFile string
		code      string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize cmsledger to send email through Gmail",
		Long: `Print the Google authorization URL, then exchange the code shown after
granting access for a token. The token is cached so later 'send' and 'serve'
runs can use it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := googleConfig(tokenFile)

			if code == "" {
				url, err := google.AuthURL(cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Visit this URL to authorize cmsledger:\n\n  %s\n\nEnter the authorization code: ", url)

				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			if code == "" {
				return fmt.Errorf("authorization code is required")
			}

			if err := google.Exchange(cmd.Context(), cfg, code); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.TokenFile)
			return nil
		},
	}

	addGoogleFlags(cmd, &tokenFile)
	cmd.Flags().StringVar(&code, "code", "", "Authorization code (prompted for when empty)")
	return cmd
}
