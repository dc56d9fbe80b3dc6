package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/instrumentation"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/reconcile"
	"github.com/transcon/cmsledger/internal/status"
	"github.com/transcon/cmsledger/internal/tracker"
)

// ledgerCheckTimeout bounds the readiness probe against the ledger.
const ledgerCheckTimeout = 5 * time.Second

// Config wires the services a ServerContext owns.
type Config struct {
	Store ledger.Store
	CMS   reconcile.NoteAdder

	// Mailer is optional; without it the server cannot send email.
	Mailer gmail.MessageSender

	Session     status.Session
	CallTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
}

// ServerContext holds the ledger services shared by CLI commands, MCP tools
// and background jobs.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	store      ledger.Store
	tracker    *tracker.Tracker
	reconciler *reconcile.Reconciler
	reporter   *status.Reporter
	sender     *gmail.Sender
	session    status.Session

	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext builds the services over cfg.Store. The context owns the
// store and closes it on Shutdown.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Session.Start.IsZero() {
		cfg.Session.Start = time.Now()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	t := tracker.New(cfg.Store,
		tracker.WithLogger(logger),
		tracker.WithMetrics(cfg.Metrics))

	sc := &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		store:       cfg.Store,
		tracker:     t,
		reporter:    status.New(cfg.Store, cfg.Session),
		session:     cfg.Session,
		logger:      logger,
		metrics:     cfg.Metrics,
		auditLogger: cfg.AuditLogger,
	}

	if cfg.CMS != nil {
		sc.reconciler = reconcile.New(cfg.Store, cfg.CMS,
			reconcile.WithCallTimeout(cfg.CallTimeout),
			reconcile.WithLogger(logger),
			reconcile.WithMetrics(cfg.Metrics),
			reconcile.WithAuditLogger(cfg.AuditLogger))
	}

	if cfg.Mailer != nil {
		opts := []gmail.SenderOption{gmail.WithSenderLogger(logger)}
		if cfg.Session.TestMode {
			opts = append(opts, gmail.WithTestMode(cfg.Session.TestEmail))
		}
		sc.sender = gmail.NewSender(cfg.Mailer, t, opts...)
	}

	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the ledger store.
func (sc *ServerContext) Store() ledger.Store { return sc.store }

// Tracker returns the pending tracker.
func (sc *ServerContext) Tracker() *tracker.Tracker { return sc.tracker }

// Reporter returns the status reporter.
func (sc *ServerContext) Reporter() *status.Reporter { return sc.reporter }

// Session returns the session the context was built with.
func (sc *ServerContext) Session() status.Session { return sc.session }

// Reconciler returns the note reconciler, or nil when no CMS is configured.
func (sc *ServerContext) Reconciler() *reconcile.Reconciler { return sc.reconciler }

// Sender returns the email sender, or nil when no mailer is configured.
func (sc *ServerContext) Sender() *gmail.Sender { return sc.sender }

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }

// Metrics returns the metrics recorder (may be nil)
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger (may be nil)
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// CheckLedger verifies the ledger can be read.
func (sc *ServerContext) CheckLedger(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ledgerCheckTimeout)
	defer cancel()
	_, err := sc.store.Pending(ctx)
	return err
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels background work and closes the ledger store.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	var errs []error
	if err := sc.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close ledger: %w", err))
	}
	return errors.Join(errs...)
}
