package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/google"
	"github.com/transcon/cmsledger/internal/instrumentation"
)

// addGoogleFlags registers the Google token cache flag on cmd.
func addGoogleFlags(cmd *cobra.Command, tokenFile *string) {
	cmd.Flags().StringVar(tokenFile, "google-token-file", google.DefaultTokenFile(),
		"Cached Google OAuth token. The OAuth client comes from "+google.EnvClientID+" and "+google.EnvClientSecret+".")
}

func googleConfig(tokenFile string) google.Config {
	cfg := google.ConfigFromEnv()
	if tokenFile != "" {
		cfg.TokenFile = tokenFile
	}
	return cfg
}

// newGmailClient returns a Gmail client authenticated with the cached token.
func newGmailClient(ctx context.Context, cfg google.Config, metrics *instrumentation.Metrics) (*gmail.Client, error) {
	if !google.NewFileTokenProvider(cfg).HasToken() {
		return nil, google.ErrNoToken
	}
	httpClient, err := google.HTTPClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}
	return gmail.NewClient(ctx, httpClient, gmail.WithClientMetrics(metrics))
}
