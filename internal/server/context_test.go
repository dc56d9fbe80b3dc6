package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/status"
)

type noopCMS struct{}

func (noopCMS) AddNote(context.Context, string, string, bool) error { return nil }

type noopMailer struct{}

func (noopMailer) SendEmail(context.Context, *gmail.EmailMessage) (string, error) {
	return "msg-1", nil
}

type closeErrStore struct{ *ledger.MemoryStore }

func (closeErrStore) Close() error { return errors.New("close failed") }

func newTestServerContext(t *testing.T, cfg Config) *ServerContext {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = ledger.NewMemoryStore()
	}
	sc, err := NewServerContext(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestNewServerContext(t *testing.T) {
	_, err := NewServerContext(context.Background(), Config{})
	assert.Error(t, err)

	sc := newTestServerContext(t, Config{})
	assert.NotNil(t, sc.Tracker())
	assert.NotNil(t, sc.Reporter())
	assert.Nil(t, sc.Reconciler(), "no CMS configured")
	assert.Nil(t, sc.Sender(), "no mailer configured")
	assert.False(t, sc.Session().Start.IsZero())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())

	full := newTestServerContext(t, Config{
		CMS:     noopCMS{},
		Mailer:  noopMailer{},
		Session: status.Session{TestMode: true, TestEmail: "qa@transcon.example"},
	})
	assert.NotNil(t, full.Reconciler())
	require.NotNil(t, full.Sender())
	assert.True(t, full.Sender().TestMode())
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Config{Store: ledger.NewMemoryStore()})
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.CheckLedger(context.Background()))

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
	assert.ErrorIs(t, sc.CheckLedger(context.Background()), ledger.ErrClosed)

	// second shutdown is a no-op
	require.NoError(t, sc.Shutdown())
}

func TestServerContext_ShutdownReportsCloseError(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Config{Store: closeErrStore{ledger.NewMemoryStore()}})
	require.NoError(t, err)
	assert.ErrorContains(t, sc.Shutdown(), "close failed")
}
