package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/transcon/cmsledger/internal/logging"
	"github.com/transcon/cmsledger/internal/reconcile"
)

// PendingProcessor runs one reconciliation pass.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (reconcile.Outcome, error)
}

// AutoReconciler runs reconciliation passes on a fixed interval.
type AutoReconciler struct {
	processor PendingProcessor
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// onPass is called after every pass. Tests use it.
	onPass func(reconcile.Outcome, error)
}

// NewAutoReconciler returns a stopped AutoReconciler. interval must be
// positive.
func NewAutoReconciler(processor PendingProcessor, interval time.Duration, logger *slog.Logger) *AutoReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoReconciler{
		processor: processor,
		interval:  interval,
		logger:    logging.WithComponent(logger, "auto_reconciler"),
	}
}

// Start launches the background loop. It returns immediately.
func (a *AutoReconciler) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go a.loop()
	a.logger.Info("automatic reconciliation enabled", slog.Duration("interval", a.interval))
}

// Stop ends the loop and waits for a running pass to finish.
func (a *AutoReconciler) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.wg.Wait()
}

func (a *AutoReconciler) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.runPass()
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *AutoReconciler) runPass() {
	out, err := a.processor.ProcessPending(a.ctx)
	switch {
	case errors.Is(err, reconcile.ErrReconcileInProgress):
		a.logger.Debug("skipping scheduled pass, another pass is running")
	case err != nil && a.ctx.Err() != nil:
		// shutting down
	case err != nil:
		a.logger.Error("scheduled reconciliation failed", logging.Err(err))
	case out.Failed > 0:
		a.logger.Warn("scheduled reconciliation left entries pending",
			slog.Int("succeeded", out.Succeeded),
			slog.Int("failed", out.Failed))
	case out.Attempted > 0:
		a.logger.Info("scheduled reconciliation finished", slog.Int("succeeded", out.Succeeded))
	}
	if a.onPass != nil {
		a.onPass(out, err)
	}
}
