// Package status answers read-only questions about the ledger: what is still
// pending and how many emails were sent and confirmed.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/transcon/cmsledger/internal/ledger"
)

// Session describes the running operator session.
type Session struct {
	Start     time.Time
	TestMode  bool
	TestEmail string
}

// Stats aggregates the ledger. Sent counts cover production emails only;
// test-mode emails are counted in TestEmailsSent.
type Stats struct {
	SentThisSession int    `json:"sent_this_session"`
	SentTotal       int    `json:"sent_total"`
	TestModeOn      bool   `json:"test_mode_on"`
	TestEmail       string `json:"test_email,omitempty"`
	PendingCount    int    `json:"pending_count"`
	ProcessedCount  int    `json:"processed_count"`
	NotesAddedCount int    `json:"notes_added_count"`
	TestEmailsSent  int    `json:"test_emails_sent"`
}

// Reporter reads the ledger on every call and never writes to it.
type Reporter struct {
	store   ledger.Store
	session Session
}

// New returns a Reporter for store.
func New(store ledger.Store, session Session) *Reporter {
	return &Reporter{store: store, session: session}
}

// Pending returns the open pending entries in the order they were recorded.
func (r *Reporter) Pending(ctx context.Context) ([]ledger.PendingEntry, error) {
	pending, err := r.store.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending entries: %w", err)
	}
	return pending, nil
}

// Stats returns counts computed from the current ledger contents.
func (r *Reporter) Stats(ctx context.Context) (Stats, error) {
	pending, err := r.store.Pending(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read pending entries: %w", err)
	}
	processed, err := r.store.Processed(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read processed entries: %w", err)
	}
	notes, err := r.store.Notes(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read CMS notes: %w", err)
	}

	s := Stats{
		TestModeOn:      r.session.TestMode,
		PendingCount:    len(pending),
		ProcessedCount:  len(processed),
		NotesAddedCount: len(notes),
	}
	if r.session.TestMode {
		s.TestEmail = r.session.TestEmail
	}

	count := func(testMode bool, sentAt time.Time) {
		if testMode {
			s.TestEmailsSent++
			return
		}
		s.SentTotal++
		if !sentAt.Before(r.session.Start) {
			s.SentThisSession++
		}
	}
	for _, e := range pending {
		count(e.TestMode, e.SentAt)
	}
	for _, e := range processed {
		count(e.TestMode, e.SentAt)
	}
	return s, nil
}
