package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// EnvClientID and EnvClientSecret name the OAuth client credentials.
	EnvClientID     = "CMSLEDGER_GOOGLE_CLIENT_ID"
	EnvClientSecret = "CMSLEDGER_GOOGLE_CLIENT_SECRET"

	tokenFileName = "google_token.json"
	oob           = "urn:ietf:wg:oauth:2.0:oob"
)

// ErrNoToken is returned when no cached token exists.
var ErrNoToken = errors.New("no Google OAuth token found; run 'cmsledger auth' first")

// Config locates the OAuth client and the token cache.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	RedirectURL  string
}

// ConfigFromEnv returns a Config populated from the environment and the
// default token location.
func ConfigFromEnv() Config {
	return Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		TokenFile:    DefaultTokenFile(),
	}
}

// DefaultTokenFile returns <user config dir>/cmsledger/google_token.json.
func DefaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "cmsledger")
		return filepath.Join(dir, tokenFileName)
	}
	return filepath.Join(dir, "cmsledger", tokenFileName)
}

func (c Config) oauthConfig() (*oauth2.Config, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, fmt.Errorf("google OAuth client not configured: set %s and %s", EnvClientID, EnvClientSecret)
	}
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = oob
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       DefaultOAuthScopes,
	}, nil
}

// AuthURL returns the URL the operator visits to grant access.
func AuthURL(cfg Config) (string, error) {
	conf, err := cfg.oauthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token and caches it.
func Exchange(ctx context.Context, cfg Config, code string) error {
	conf, err := cfg.oauthConfig()
	if err != nil {
		return err
	}
	tok, err := conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return SaveToken(cfg.TokenFile, tok)
}

// HasToken reports whether a token is cached at path.
func HasToken(path string) bool {
	_, err := LoadToken(path)
	return err == nil
}

// LoadToken reads a cached token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("invalid token file %s: no access or refresh token", path)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// TokenSource returns a refreshing token source over the cached token. A
// refreshed token is written back to the cache.
func TokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	conf, err := cfg.oauthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		base: conf.TokenSource(ctx, tok),
		path: cfg.TokenFile,
		last: tok.AccessToken,
	}, nil
}

// HTTPClient returns an HTTP client authenticated with the cached token.
func HTTPClient(ctx context.Context, cfg Config) (*http.Client, error) {
	ts, err := TokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
