// Package reconcile adds CMS notes for pending emails and moves the confirmed
// ones to the processed log.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/transcon/cmsledger/internal/instrumentation"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/logging"
)

// DefaultCallTimeout bounds a single CMS call.
const DefaultCallTimeout = 30 * time.Second

// ErrReconcileInProgress is returned when ProcessPending is called while
// another pass on the same Reconciler is still running.
var ErrReconcileInProgress = errors.New("reconcile: a pass is already running")

// Failure is a pending entry that is still pending after a pass.
type Failure struct {
	Entry  ledger.PendingEntry `json:"entry"`
	Reason string              `json:"reason"`
}

// Outcome summarizes one pass.
type Outcome struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts entries another process committed during this pass.
	Skipped  int       `json:"skipped,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
}

// compactor is implemented by stores that can drop committed leftovers.
type compactor interface {
	Compact(ctx context.Context) error
}

// Reconciler owns the pending to processed transition.
type Reconciler struct {
	store   ledger.Store
	cms     NoteAdder
	timeout time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	now     func() time.Time

	running atomic.Bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCallTimeout sets the timeout for each CMS call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithAuditLogger sets the audit logger for note attempts.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(r *Reconciler) { r.audit = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// New returns a Reconciler for store that adds notes through cms.
func New(store ledger.Store, cms NoteAdder, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   store,
		cms:     cms,
		timeout: DefaultCallTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.WithComponent(r.logger, "reconciler")
	return r
}

// ProcessPending attempts a CMS note for every entry in the current pending
// snapshot. Per-entry failures are collected in the Outcome and leave the
// entry pending; the returned error is reserved for failures that prevent the
// pass from running at all (unreadable store, overlapping pass, cancellation).
func (r *Reconciler) ProcessPending(ctx context.Context) (Outcome, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Outcome{}, ErrReconcileInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	ctx, span := instrumentation.StartSpan(ctx, "reconcile.process_pending")
	defer span.End()

	if c, ok := r.store.(compactor); ok {
		if err := c.Compact(ctx); err != nil {
			r.logger.Warn("ledger compaction failed", logging.Err(err))
		}
	}

	pending, err := r.store.Pending(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		r.metrics.RecordReconcileRun(ctx, instrumentation.StatusError, 0, time.Since(start))
		return Outcome{}, fmt.Errorf("failed to read pending entries: %w", err)
	}

	var out Outcome
	var runErr error
	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("reconcile interrupted after %d of %d entries: %w", out.Attempted, len(pending), err)
			break
		}
		out.Attempted++
		switch reason, skipped := r.processEntry(ctx, entry); {
		case skipped:
			out.Skipped++
		case reason == "":
			out.Succeeded++
		default:
			out.Failed++
			out.Failures = append(out.Failures, Failure{Entry: entry, Reason: reason})
		}
	}

	remaining := len(pending) - out.Succeeded - out.Skipped
	status := instrumentation.StatusSuccess
	if out.Failed > 0 || runErr != nil {
		status = instrumentation.StatusError
	}
	r.metrics.RecordReconcileRun(ctx, status, remaining, time.Since(start))

	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrAttempted, out.Attempted),
		attribute.Int(instrumentation.SpanAttrSucceeded, out.Succeeded),
		attribute.Int(instrumentation.SpanAttrFailed, out.Failed),
	)
	if runErr != nil {
		instrumentation.SetSpanError(span, runErr)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	r.logger.Info("reconcile pass finished",
		slog.Int("attempted", out.Attempted),
		slog.Int("succeeded", out.Succeeded),
		slog.Int("failed", out.Failed),
		slog.Int("skipped", out.Skipped),
		slog.Duration(logging.KeyDuration, time.Since(start)))
	return out, runErr
}

// processEntry returns an empty reason when the entry was committed, and
// skipped when another process committed it first.
func (r *Reconciler) processEntry(ctx context.Context, entry ledger.PendingEntry) (reason string, skipped bool) {
	start := time.Now()
	note := NoteText(entry)
	attempt := &instrumentation.NoteAttempt{
		EntryID:   entry.ID,
		CaseID:    entry.CaseID,
		Recipient: entry.Recipient,
		TestMode:  entry.TestMode,
	}
	log := r.logger.With(logging.EntryID(entry.ID), logging.CaseID(entry.CaseID))

	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceCMS, instrumentation.OperationAddNote,
		instrumentation.NewSpanAttributeBuilder().
			WithEntry(entry.ID, entry.CaseID).
			WithEmailType(entry.EmailType).
			WithTestMode(entry.TestMode).
			Build()...)
	defer span.End()
	attempt.TraceID = instrumentation.GetTraceID(ctx)

	finish := func(result string, err error) {
		attempt.Result = result
		attempt.Duration = time.Since(start)
		if err != nil {
			attempt.Error = err.Error()
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		r.metrics.RecordNote(ctx, result, entry.TestMode)
		r.audit.LogNoteAttempt(attempt)
	}

	callStart := time.Now()
	err := r.addNote(ctx, entry, note)
	apiStatus := instrumentation.StatusSuccess
	if err != nil {
		apiStatus = instrumentation.StatusError
	}
	r.metrics.RecordAPIOperation(ctx, instrumentation.ServiceCMS, instrumentation.OperationAddNote, apiStatus, time.Since(callStart))
	if err != nil {
		log.Warn("CMS note failed, entry stays pending", logging.Err(err))
		finish(instrumentation.NoteResultRejected, err)
		return err.Error(), false
	}

	confirmedAt := r.now().UTC()
	err = r.store.Commit(ctx, ledger.Transition{
		Processed: entry.Processed(confirmedAt),
		Note: ledger.NoteAuditEntry{
			PendingID:   entry.ID,
			CaseID:      entry.CaseID,
			NoteContent: note,
			TestMode:    entry.TestMode,
			AddedAt:     confirmedAt,
		},
	})
	switch {
	case err == nil:
		log.Info("CMS note added", logging.TestMode(entry.TestMode))
		finish(instrumentation.NoteResultAdded, nil)
		return "", false
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		log.Warn("entry was committed by another process; CMS may hold a duplicate note")
		finish(instrumentation.NoteResultAdded, nil)
		return "", true
	default:
		log.Error("CMS note added but ledger commit failed, entry stays pending", logging.Err(err))
		finish(instrumentation.NoteResultCommitFailed, err)
		return fmt.Sprintf("note added to CMS but not recorded: %v", err), false
	}
}

// addNote calls the CMS with a per-call deadline. A panic in the adder is
// reported as a failure of this entry only.
func (r *Reconciler) addNote(ctx context.Context, entry ledger.PendingEntry, note string) (err error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("CMS client panic: %v", p)
		}
	}()

	err = r.cms.AddNote(callCtx, entry.CaseID, note, entry.TestMode)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("CMS call timed out after %s: %w", r.timeout, err)
	}
	return err
}
