package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresPendingTable     = "cms_pending"
	postgresProcessedTable   = "cms_processed"
	postgresNotesTable       = "cms_note_audit"
	postgresOperationTimeout = 5 * time.Second
)

// PostgresStore keeps the three logs in Postgres tables. Commit runs in a
// single transaction, so the pending to processed move is atomic for every
// reader.
type PostgresStore struct {
	dsn    string
	prefix string

	initOnce sync.Once
	initErr  error
	pool     *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and creates the ledger tables if they
// do not exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	return newPostgresStore(ctx, dsn, "")
}

func newPostgresStore(ctx context.Context, dsn, prefix string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	s := &PostgresStore{dsn: dsn, prefix: prefix}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) table(name string) string {
	return pgx.Identifier{s.prefix + name}.Sanitize()
}

func (s *PostgresStore) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, s.dsn)
		if err != nil {
			s.initErr = fmt.Errorf("failed to connect to postgres: %w", err)
			return
		}
		ddl := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL,
				id TEXT PRIMARY KEY,
				process_id TEXT NOT NULL,
				recipient TEXT NOT NULL,
				intended_recipient TEXT NOT NULL DEFAULT '',
				case_id TEXT NOT NULL,
				email_type TEXT NOT NULL,
				test_mode BOOLEAN NOT NULL,
				sent_at TIMESTAMPTZ NOT NULL
			)`, s.table(postgresPendingTable)),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL,
				pending_id TEXT PRIMARY KEY,
				process_id TEXT NOT NULL,
				recipient TEXT NOT NULL,
				case_id TEXT NOT NULL,
				email_type TEXT NOT NULL,
				test_mode BOOLEAN NOT NULL,
				sent_at TIMESTAMPTZ NOT NULL,
				confirmed_at TIMESTAMPTZ NOT NULL
			)`, s.table(postgresProcessedTable)),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL PRIMARY KEY,
				pending_id TEXT NOT NULL,
				case_id TEXT NOT NULL,
				note_content TEXT NOT NULL,
				test_mode BOOLEAN NOT NULL,
				added_at TIMESTAMPTZ NOT NULL
			)`, s.table(postgresNotesTable)),
		}
		for _, stmt := range ddl {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				pool.Close()
				s.initErr = fmt.Errorf("failed to create ledger tables: %w", err)
				return
			}
		}
		s.pool = pool
	})
	return s.initErr
}

func (s *PostgresStore) AppendPending(ctx context.Context, e PendingEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s
		(id, process_id, recipient, intended_recipient, case_id, email_type, test_mode, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table(postgresPendingTable))
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.ProcessID, e.Recipient, e.IntendedRecipient, e.CaseID, e.EmailType, e.TestMode, e.SentAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: duplicate pending id %s", ErrInvalidInput, e.ID)
		}
		return fmt.Errorf("failed to record pending entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Pending(ctx context.Context) ([]PendingEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, process_id, recipient, intended_recipient, case_id, email_type, test_mode, sent_at
		FROM %s ORDER BY seq`, s.table(postgresPendingTable))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PendingEntry, error) {
		var e PendingEntry
		err := row.Scan(&e.ID, &e.ProcessID, &e.Recipient, &e.IntendedRecipient,
			&e.CaseID, &e.EmailType, &e.TestMode, &e.SentAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pending entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Processed(ctx context.Context) ([]ProcessedEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT pending_id, process_id, recipient, case_id, email_type, test_mode, sent_at, confirmed_at
		FROM %s ORDER BY seq`, s.table(postgresProcessedTable))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed entries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProcessedEntry, error) {
		var e ProcessedEntry
		err := row.Scan(&e.PendingID, &e.ProcessID, &e.Recipient, &e.CaseID,
			&e.EmailType, &e.TestMode, &e.SentAt, &e.ConfirmedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read processed entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Notes(ctx context.Context) ([]NoteAuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT pending_id, case_id, note_content, test_mode, added_at
		FROM %s ORDER BY seq`, s.table(postgresNotesTable))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query CMS notes: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NoteAuditEntry, error) {
		var e NoteAuditEntry
		err := row.Scan(&e.PendingID, &e.CaseID, &e.NoteContent, &e.TestMode, &e.AddedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read CMS notes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Commit(ctx context.Context, t Transition) error {
	if err := t.validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, n := t.Processed, t.Note
	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table(postgresPendingTable)), p.PendingID)
	if err != nil {
		return fmt.Errorf("failed to remove pending entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE pending_id = $1)`,
			s.table(postgresProcessedTable)), p.PendingID).Scan(&exists)
		if err == nil && exists {
			return ErrAlreadyProcessed
		}
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s
		(pending_id, process_id, recipient, case_id, email_type, test_mode, sent_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table(postgresProcessedTable)),
		p.PendingID, p.ProcessID, p.Recipient, p.CaseID, p.EmailType, p.TestMode, p.SentAt, p.ConfirmedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to record processed entry: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s
		(pending_id, case_id, note_content, test_mode, added_at)
		VALUES ($1, $2, $3, $4, $5)`, s.table(postgresNotesTable)),
		n.PendingID, n.CaseID, n.NoteContent, n.TestMode, n.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to record CMS note: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
