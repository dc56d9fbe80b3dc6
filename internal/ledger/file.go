package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File names inside a file store directory.
const (
	PendingFile   = "pending.jsonl"
	ProcessedFile = "processed.jsonl"
	NotesFile     = "cms_notes.jsonl"
	lockFile      = ".lock"
)

// FileStore keeps each log as a JSON-lines file in one directory. Operators
// can read the files directly to see which emails still need attention.
//
// Commit writes the note record, then the processed record, then rewrites the
// pending file. The processed append is the commit point: a pending line whose
// id already has a processed record is hidden from readers and removed by the
// next compaction.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	lk     *dirLock
	closed bool

	// failpoints used by crash tests
	beforeProcessedAppend func() error
	beforePendingRewrite  func() error
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the logger used for recovery warnings.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore opens (creating if needed) a file store rooted at dir and
// compacts pending entries left behind by an interrupted commit.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty ledger directory", ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	lk, err := openDirLock(filepath.Join(dir, lockFile))
	if err != nil {
		return nil, err
	}
	s := &FileStore{
		dir:    dir,
		logger: slog.Default(),
		lk:     lk,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "ledger", "dir", dir)

	if err := s.withLock(s.compactLocked); err != nil {
		_ = lk.close()
		return nil, err
	}
	return s, nil
}

// Dir returns the directory holding the log files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path of a named log.
func (s *FileStore) Path(log string) string {
	switch log {
	case LogProcessed:
		return filepath.Join(s.dir, ProcessedFile)
	case LogNotes:
		return filepath.Join(s.dir, NotesFile)
	default:
		return filepath.Join(s.dir, PendingFile)
	}
}

func (s *FileStore) AppendPending(_ context.Context, entry PendingEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return s.withLock(func() error {
		if err := appendRecord(s.Path(LogPending), entry); err != nil {
			return fmt.Errorf("failed to record pending entry: %w", err)
		}
		return nil
	})
}

func (s *FileStore) Pending(_ context.Context) ([]PendingEntry, error) {
	var open []PendingEntry
	err := s.withLock(func() error {
		lines, done, err := s.loadLocked()
		if err != nil {
			return err
		}
		for _, l := range lines {
			if !l.ok() {
				continue
			}
			if _, ok := done[l.rec.ID]; !ok {
				open = append(open, l.rec)
			}
		}
		return nil
	})
	return open, err
}

func (s *FileStore) Processed(_ context.Context) ([]ProcessedEntry, error) {
	var out []ProcessedEntry
	err := s.withLock(func() error {
		var err error
		out, err = readLog[ProcessedEntry](s.Path(LogProcessed), s.logger)
		return err
	})
	return out, err
}

func (s *FileStore) Notes(_ context.Context) ([]NoteAuditEntry, error) {
	var out []NoteAuditEntry
	err := s.withLock(func() error {
		var err error
		out, err = readLog[NoteAuditEntry](s.Path(LogNotes), s.logger)
		return err
	})
	return out, err
}

func (s *FileStore) Commit(_ context.Context, t Transition) error {
	if err := t.validate(); err != nil {
		return err
	}
	id := t.Processed.PendingID
	return s.withLock(func() error {
		lines, done, err := s.loadLocked()
		if err != nil {
			return err
		}
		if _, ok := done[id]; ok {
			return ErrAlreadyProcessed
		}
		found := false
		for _, l := range lines {
			if l.ok() && l.rec.ID == id {
				found = true
				break
			}
		}
		if !found {
			return ErrNotFound
		}

		if err := appendRecord(s.Path(LogNotes), t.Note); err != nil {
			return fmt.Errorf("failed to record CMS note: %w", err)
		}
		if s.beforeProcessedAppend != nil {
			if err := s.beforeProcessedAppend(); err != nil {
				return err
			}
		}
		if err := appendRecord(s.Path(LogProcessed), t.Processed); err != nil {
			return fmt.Errorf("failed to record processed entry: %w", err)
		}

		// The entry is committed. A failed rewrite only leaves a hidden
		// line behind for the next compaction.
		done[id] = struct{}{}
		if err := s.rewritePendingLocked(lines, done); err != nil {
			s.logger.Warn("pending log compaction deferred",
				"pending_id", id, "error", err.Error())
		}
		return nil
	})
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lk.close()
}

// Compact removes pending lines that already have a processed record.
func (s *FileStore) Compact(_ context.Context) error {
	return s.withLock(s.compactLocked)
}

func (s *FileStore) compactLocked() error {
	lines, done, err := s.loadLocked()
	if err != nil {
		return err
	}
	stale := 0
	for _, l := range lines {
		if _, ok := done[l.rec.ID]; ok && l.ok() {
			stale++
		}
	}
	if stale == 0 {
		return nil
	}
	s.logger.Info("compacting pending log", "committed_leftovers", stale)
	return s.rewritePendingLocked(lines, done)
}

// rewritePendingLocked drops committed entries from the pending log. Lines
// that do not decode stay in place for the operator to repair.
func (s *FileStore) rewritePendingLocked(lines []logLine[PendingEntry], done map[string]struct{}) error {
	if s.beforePendingRewrite != nil {
		if err := s.beforePendingRewrite(); err != nil {
			return err
		}
	}
	keep := make([]logLine[PendingEntry], 0, len(lines))
	for _, l := range lines {
		if _, ok := done[l.rec.ID]; ok && l.ok() {
			continue
		}
		keep = append(keep, l)
	}
	return rewriteLog(s.Path(LogPending), keep)
}

// loadLocked reads the pending log lines and the set of committed pending ids.
func (s *FileStore) loadLocked() ([]logLine[PendingEntry], map[string]struct{}, error) {
	pending, err := scanLog[PendingEntry](s.Path(LogPending), s.logger)
	if err != nil {
		return nil, nil, err
	}
	processed, err := readLog[ProcessedEntry](s.Path(LogProcessed), s.logger)
	if err != nil {
		return nil, nil, err
	}
	done := make(map[string]struct{}, len(processed))
	for _, p := range processed {
		done[p.PendingID] = struct{}{}
	}
	return pending, done, nil
}

func (s *FileStore) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.lk.lock(); err != nil {
		return err
	}
	err := fn()
	if uerr := s.lk.unlock(); uerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to unlock ledger: %w", uerr))
	}
	return err
}
