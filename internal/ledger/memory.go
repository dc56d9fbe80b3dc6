package ledger

import (
	"context"
	"sync"
)

// MemoryStore is a Store without durability, for tests and dry runs.
type MemoryStore struct {
	mu        sync.Mutex
	pending   []PendingEntry
	processed []ProcessedEntry
	notes     []NoteAuditEntry
	closed    bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AppendPending(_ context.Context, entry PendingEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pending = append(s.pending, entry)
	return nil
}

func (s *MemoryStore) Pending(_ context.Context) ([]PendingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]PendingEntry(nil), s.pending...), nil
}

func (s *MemoryStore) Processed(_ context.Context) ([]ProcessedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]ProcessedEntry(nil), s.processed...), nil
}

func (s *MemoryStore) Notes(_ context.Context) ([]NoteAuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]NoteAuditEntry(nil), s.notes...), nil
}

func (s *MemoryStore) Commit(_ context.Context, t Transition) error {
	if err := t.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, p := range s.processed {
		if p.PendingID == t.Processed.PendingID {
			return ErrAlreadyProcessed
		}
	}
	for i, e := range s.pending {
		if e.ID == t.Processed.PendingID {
			s.notes = append(s.notes, t.Note)
			s.processed = append(s.processed, t.Processed)
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
