package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionFile is the name of the marker that records when the operator
// session started. It lives next to the ledger so every command of one
// session sees the same start time.
const SessionFile = "session.json"

// ErrNoSession is returned by LoadSessionStart when no session was started.
var ErrNoSession = errors.New("status: no session started")

type sessionMarker struct {
	StartedAt time.Time `json:"started_at"`
}

// LoadSessionStart reads the session start from the marker at path.
func LoadSessionStart(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, ErrNoSession
		}
		return time.Time{}, fmt.Errorf("failed to read session marker: %w", err)
	}
	var m sessionMarker
	if err := json.Unmarshal(data, &m); err != nil || m.StartedAt.IsZero() {
		return time.Time{}, fmt.Errorf("invalid session marker %s", path)
	}
	return m.StartedAt, nil
}

// SaveSessionStart replaces the marker at path with start.
func SaveSessionStart(path string, start time.Time) error {
	data, err := json.Marshal(sessionMarker{StartedAt: start.UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode session marker: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace session marker: %w", err)
	}
	return nil
}
