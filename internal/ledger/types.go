package ledger

import (
	"errors"
	"time"
)

// Log names identify the three logical logs kept by every Store.
const (
	LogPending   = "pending"
	LogProcessed = "processed"
	LogNotes     = "cms_notes"
)

var (
	// ErrInvalidInput is returned when a record is missing required fields.
	ErrInvalidInput = errors.New("ledger: invalid input")

	// ErrNotFound is returned by Commit when the pending entry does not exist.
	ErrNotFound = errors.New("ledger: pending entry not found")

	// ErrAlreadyProcessed is returned by Commit when the pending entry was
	// already moved to the processed log.
	ErrAlreadyProcessed = errors.New("ledger: entry already processed")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("ledger: store closed")

	// ErrUnsupportedBackend is returned by Open for unknown DSN schemes.
	ErrUnsupportedBackend = errors.New("ledger: unsupported backend")
)

// PendingEntry is an email that was sent but has no confirmed CMS note yet.
type PendingEntry struct {
	ID        string `json:"id"`
	ProcessID string `json:"process_id"`
	Recipient string `json:"recipient"`
	// IntendedRecipient is set when a test-mode email was redirected away
	// from the address it was written for.
	IntendedRecipient string    `json:"intended_recipient,omitempty"`
	CaseID            string    `json:"case_id"`
	EmailType         string    `json:"email_type"`
	TestMode          bool      `json:"test_mode"`
	SentAt            time.Time `json:"sent_at"`
}

func (e PendingEntry) key() string { return e.ID }

// Validate reports whether the entry can be written to the pending log.
func (e PendingEntry) Validate() error {
	if e.ID == "" || e.CaseID == "" || e.Recipient == "" || e.SentAt.IsZero() {
		return ErrInvalidInput
	}
	return nil
}

// ProcessedEntry is the permanent record of a pending entry whose CMS note
// was confirmed.
type ProcessedEntry struct {
	PendingID   string    `json:"pending_id"`
	ProcessID   string    `json:"process_id"`
	Recipient   string    `json:"recipient"`
	CaseID      string    `json:"case_id"`
	EmailType   string    `json:"email_type"`
	TestMode    bool      `json:"test_mode"`
	SentAt      time.Time `json:"sent_at"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (e ProcessedEntry) key() string { return e.PendingID }

// NoteAuditEntry records the text of a CMS note that was added.
type NoteAuditEntry struct {
	PendingID   string    `json:"pending_id"`
	CaseID      string    `json:"case_id"`
	NoteContent string    `json:"note_content"`
	TestMode    bool      `json:"test_mode"`
	AddedAt     time.Time `json:"added_at"`
}

func (e NoteAuditEntry) key() string { return e.PendingID }

// Processed builds the processed record for a confirmed pending entry.
func (e PendingEntry) Processed(confirmedAt time.Time) ProcessedEntry {
	return ProcessedEntry{
		PendingID:   e.ID,
		ProcessID:   e.ProcessID,
		Recipient:   e.Recipient,
		CaseID:      e.CaseID,
		EmailType:   e.EmailType,
		TestMode:    e.TestMode,
		SentAt:      e.SentAt,
		ConfirmedAt: confirmedAt,
	}
}

// Transition is the unit of work that moves one pending entry to the
// processed and note logs.
type Transition struct {
	Processed ProcessedEntry
	Note      NoteAuditEntry
}

func (t Transition) validate() error {
	if t.Processed.PendingID == "" || t.Note.PendingID != t.Processed.PendingID {
		return ErrInvalidInput
	}
	return nil
}
