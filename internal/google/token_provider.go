package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider supplies the OAuth token for Google API calls.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	HasToken() bool
}

// FileTokenProvider reads the token cached on disk.
type FileTokenProvider struct {
	cfg Config
}

// NewFileTokenProvider returns a provider for cfg.
func NewFileTokenProvider(cfg Config) *FileTokenProvider {
	return &FileTokenProvider{cfg: cfg}
}

// Token returns a valid token, refreshing it if needed.
func (p *FileTokenProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	ts, err := TokenSource(ctx, p.cfg)
	if err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token from file: %w", err)
	}
	return tok, nil
}

// HasToken reports whether a token file exists.
func (p *FileTokenProvider) HasToken() bool {
	return HasToken(p.cfg.TokenFile)
}
