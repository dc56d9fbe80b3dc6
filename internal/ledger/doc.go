// Package ledger stores the pending, processed and CMS note logs that
// guarantee every sent email is eventually matched by a confirmed CMS note.
//
// Three backends implement Store:
//   - FileStore: one JSON-lines file per log, fsynced appends, atomic
//     rewrites of the pending file, advisory directory lock
//   - PostgresStore: one table per log, transactional commits
//   - MemoryStore: no durability, for tests and dry runs
//
// Open selects a backend from a DSN.
//
// Example:
//
//	store, err := ledger.Open(ctx, "/var/lib/cmsledger", slog.Default())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	pending, err := store.Pending(ctx)
package ledger
