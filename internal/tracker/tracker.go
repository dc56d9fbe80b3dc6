// Package tracker records sent emails in the pending log.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/transcon/cmsledger/internal/instrumentation"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/logging"
)

// DefaultEmailType is used when a caller does not name the kind of email.
const DefaultEmailType = "general"

var validate = validator.New()

// SentEmail describes an email that has just been sent.
type SentEmail struct {
	ProcessID string `json:"process_id" validate:"max=100"`
	Recipient string `json:"recipient" validate:"required,email"`
	// IntendedRecipient is the original address of a test-mode email that
	// was redirected to the test inbox.
	IntendedRecipient string `json:"intended_recipient,omitempty" validate:"omitempty,email"`
	CaseID            string `json:"case_id" validate:"required,max=100"`
	EmailType         string `json:"email_type" validate:"max=100"`
	TestMode          bool   `json:"test_mode"`
}

// ValidationError reports a SentEmail that cannot be recorded.
type ValidationError struct {
	Fields []string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid sent email: %v", e.err)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// Validate checks the required fields.
func (s *SentEmail) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		verr := &ValidationError{err: err}
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Fields = append(verr.Fields, fe.Field())
			}
		}
		return verr
	}
	return nil
}

// Tracker is the only writer of pending entries.
type Tracker struct {
	store   ledger.Store
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
	newID   func() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New returns a Tracker writing to store.
func New(store ledger.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.WithComponent(t.logger, "tracker")
	return t
}

// RecordSent appends a pending entry for an email that was just sent. It
// must run before the send is reported as successful: a returned error
// means the email is not tracked and the caller has to surface it.
func (t *Tracker) RecordSent(ctx context.Context, sent SentEmail) (ledger.PendingEntry, error) {
	sent.Recipient = strings.TrimSpace(sent.Recipient)
	sent.IntendedRecipient = strings.TrimSpace(sent.IntendedRecipient)
	sent.CaseID = strings.TrimSpace(sent.CaseID)
	sent.EmailType = strings.TrimSpace(sent.EmailType)
	if sent.EmailType == "" {
		sent.EmailType = DefaultEmailType
	}
	if err := sent.Validate(); err != nil {
		t.metrics.RecordPendingRecorded(ctx, sent.EmailType, sent.TestMode, instrumentation.StatusError)
		return ledger.PendingEntry{}, err
	}

	entry := ledger.PendingEntry{
		ID:                t.newID(),
		ProcessID:         sent.ProcessID,
		Recipient:         sent.Recipient,
		IntendedRecipient: sent.IntendedRecipient,
		CaseID:            sent.CaseID,
		EmailType:         sent.EmailType,
		TestMode:          sent.TestMode,
		SentAt:            t.now().UTC(),
	}

	if err := t.store.AppendPending(ctx, entry); err != nil {
		t.metrics.RecordPendingRecorded(ctx, entry.EmailType, entry.TestMode, instrumentation.StatusError)
		t.logger.Error("failed to record sent email",
			logging.CaseID(entry.CaseID),
			logging.Recipient(entry.Recipient),
			logging.Err(err))
		return ledger.PendingEntry{}, fmt.Errorf("failed to record sent email for case %s: %w", entry.CaseID, err)
	}

	t.metrics.RecordPendingRecorded(ctx, entry.EmailType, entry.TestMode, instrumentation.StatusSuccess)
	t.logger.Info("email recorded as pending",
		logging.EntryID(entry.ID),
		logging.CaseID(entry.CaseID),
		logging.EmailType(entry.EmailType),
		logging.TestMode(entry.TestMode),
		logging.Recipient(entry.Recipient))
	return entry, nil
}
