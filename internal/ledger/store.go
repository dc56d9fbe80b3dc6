package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
)

// Store is durable storage for the pending, processed and note logs.
//
// AppendPending and Commit are durable before they return nil. Pending never
// returns an entry that has a processed record, so a reader sees every email
// in exactly one of Pending and Processed.
type Store interface {
	// AppendPending adds one entry to the pending log.
	AppendPending(ctx context.Context, entry PendingEntry) error

	// Pending returns the open pending entries in the order they were recorded.
	Pending(ctx context.Context) ([]PendingEntry, error)

	// Processed returns the processed log in append order.
	Processed(ctx context.Context) ([]ProcessedEntry, error)

	// Notes returns the note audit log in append order.
	Notes(ctx context.Context) ([]NoteAuditEntry, error)

	// Commit writes the processed and note records for a pending entry and
	// removes it from the pending log as a single unit. If Commit returns an
	// error the entry is still pending.
	Commit(ctx context.Context, t Transition) error

	// Close releases the resources held by the store.
	Close() error
}

// Open builds a Store from a DSN.
//
// Supported forms:
//
//	/var/lib/cmsledger            file store rooted at the directory
//	file:///var/lib/cmsledger     same
//	memory://                     in-memory store (tests, dry runs)
//	postgres://user@host/db       Postgres store
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty ledger DSN", ErrInvalidInput)
	}
	if dir, ok := FileDir(dsn); ok {
		return openFile(dir, logger)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger DSN: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "file":
		return nil, fmt.Errorf("%w: file DSN without a path", ErrInvalidInput)
	case "memory", "mem", "inmem":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, parsed.Scheme)
	}
}

// FileDir returns the directory of a file store DSN. It reports false for
// other backends.
func FileDir(dsn string) (string, bool) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", false
	}
	if !strings.Contains(dsn, "://") {
		return dsn, true
	}
	parsed, err := url.Parse(dsn)
	if err != nil || !strings.EqualFold(parsed.Scheme, "file") {
		return "", false
	}
	path := parsed.Path
	if parsed.Host != "" {
		path = filepath.Join(parsed.Host, parsed.Path)
	}
	if path == "" {
		return "", false
	}
	return filepath.FromSlash(path), true
}

// Backend names the store a DSN selects: file, memory, postgres, or the raw
// scheme when it is not supported.
func Backend(dsn string) string {
	if _, ok := FileDir(dsn); ok {
		return "file"
	}
	parsed, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return ""
	}
	switch scheme := strings.ToLower(parsed.Scheme); scheme {
	case "memory", "mem", "inmem":
		return "memory"
	case "postgres", "postgresql":
		return "postgres"
	default:
		return scheme
	}
}

func openFile(dir string, logger *slog.Logger) (Store, error) {
	s, err := NewFileStore(dir, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}
