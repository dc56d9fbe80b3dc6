package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// record is implemented by every type stored in a log file. A decoded line
// with an empty key is treated as malformed.
type record interface {
	key() string
}

// logLine is one non-empty line of a log file. A line that did not decode
// keeps its original bytes in raw and has a zero rec.
type logLine[T record] struct {
	rec T
	raw []byte
}

func (l logLine[T]) ok() bool { return l.raw == nil }

// scanLog splits a JSON-lines file into lines. Lines that do not decode are
// kept as raw bytes with a warning and never abort the read, so one damaged
// line cannot hide the records around it. A final line without a terminating
// newline is the fragment of an interrupted append and is dropped.
func scanLog[T record](path string, logger *slog.Logger) ([]logLine[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var out []logLine[T]
	lines := bytes.Split(data, []byte{'\n'})
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil || rec.key() == "" {
			if i == len(lines)-1 {
				logger.Warn("discarding incomplete trailing record",
					"file", filepath.Base(path), "line", i+1, "bytes", len(line))
				continue
			}
			logger.Warn("skipping malformed record",
				"file", filepath.Base(path), "line", i+1)
			out = append(out, logLine[T]{raw: bytes.Clone(line)})
			continue
		}
		out = append(out, logLine[T]{rec: rec})
	}
	return out, nil
}

// readLog returns the records of a JSON-lines file that decode.
func readLog[T record](path string, logger *slog.Logger) ([]T, error) {
	lines, err := scanLog[T](path, logger)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, l := range lines {
		if l.ok() {
			out = append(out, l.rec)
		}
	}
	return out, nil
}

// appendRecord writes one JSON line and fsyncs the file before returning.
func appendRecord(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	if err := tailRepair(f); err != nil {
		_ = f.Close()
		return err
	}

	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// tailRepair truncates a torn final record left by an interrupted append, so
// the next record starts on its own line and the fragment is gone.
func tailRepair(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filepath.Base(f.Name()), err)
	}
	end := info.Size()
	if end == 0 {
		return nil
	}

	const chunk = 4096
	buf := make([]byte, chunk)
	for pos := end; pos > 0; {
		n := int64(chunk)
		if pos < n {
			n = pos
		}
		pos -= n
		if _, err := f.ReadAt(buf[:n], pos); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read tail of %s: %w", filepath.Base(f.Name()), err)
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			keep := pos + int64(i) + 1
			if keep == end {
				return nil
			}
			return truncateTail(f, keep)
		}
	}
	return truncateTail(f, 0)
}

func truncateTail(f *os.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("failed to drop torn record in %s: %w", filepath.Base(f.Name()), err)
	}
	return nil
}

// rewriteLog atomically replaces a log file with the given lines. Decoded
// records are re-encoded and malformed lines are written back unchanged.
func rewriteLog[T record](path string, lines []logLine[T]) error {
	var buf bytes.Buffer
	for _, l := range lines {
		if !l.ok() {
			buf.Write(l.raw)
			buf.WriteByte('\n')
			continue
		}
		line, err := json.Marshal(l.rec)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(tmp), err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return syncDir(filepath.Dir(path))
}
