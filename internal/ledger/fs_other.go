//go:build !unix

package ledger

import (
	"fmt"
	"os"
)

// dirLock only holds the lock file open on platforms without flock; the
// store's mutex still serializes writers inside one process.
type dirLock struct {
	f *os.File
}

func openDirLock(path string) (*dirLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) lock() error   { return nil }
func (l *dirLock) unlock() error { return nil }
func (l *dirLock) close() error  { return l.f.Close() }

// Directories cannot be fsynced on Windows; rename is already durable there.
func syncDir(string) error { return nil }
