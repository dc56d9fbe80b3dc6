package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", tokenFileName)
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, tok.Expiry.Equal(loaded.Expiry))
	assert.True(t, HasToken(path))
}

func TestLoadTokenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadToken(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrNoToken)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("access refresh"), 0o600))
	_, err = LoadToken(garbage)
	assert.Error(t, err)
	assert.False(t, HasToken(garbage))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	_, err = LoadToken(empty)
	assert.Error(t, err)
}

func TestOAuthConfig(t *testing.T) {
	_, err := Config{}.oauthConfig()
	assert.Error(t, err)

	conf, err := Config{ClientID: "id", ClientSecret: "secret"}.oauthConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{gmail.GmailSendScope}, conf.Scopes)
	assert.Equal(t, oob, conf.RedirectURL)

	url, err := AuthURL(Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Contains(t, url, "client_id=id")
	assert.Contains(t, url, "access_type=offline")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvClientID, "env-id")
	t.Setenv(EnvClientSecret, "env-secret")
	cfg := ConfigFromEnv()
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, tokenFileName, filepath.Base(cfg.TokenFile))
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestPersistingTokenSourceWritesRefreshedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), tokenFileName)
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "old", RefreshToken: "r"}))

	ts := &persistingTokenSource{
		base: staticSource{tok: &oauth2.Token{AccessToken: "new", RefreshToken: "r"}},
		path: path,
		last: "old",
	}
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.AccessToken)
}

func TestFileTokenProvider(t *testing.T) {
	cfg := Config{ClientID: "id", ClientSecret: "secret", TokenFile: filepath.Join(t.TempDir(), tokenFileName)}
	p := NewFileTokenProvider(cfg)
	assert.False(t, p.HasToken())
	_, err := p.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	future := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, SaveToken(cfg.TokenFile, future))
	assert.True(t, p.HasToken())
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
}
