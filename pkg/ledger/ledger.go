// Package ledger implements the shared quota ledger: a plain-text file
// with one line per disk identity, mutated only under an exclusive
// advisory file lock. The file is the single source of truth; there is no
// in-memory cache, and every read re-opens and re-parses it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"scratchguard/pkg/log"
)

// entryFields is the number of whitespace-separated fields in a well
// formed ledger line: identity, capacity and reserved quota.
const entryFields = 3

const (
	filePerm = 0644
	// DefaultLockTimeout bounds the wait for the exclusive ledger lock.
	DefaultLockTimeout = 100 * time.Second
)

// ErrLineOutOfRange is returned for line indexes outside the ledger.
var ErrLineOutOfRange = errors.New("ledger line index out of range")

// Entry is one parsed ledger line.
type Entry struct {
	DiskID     string
	CapacityGB float64
	QuotaGB    float64
}

// String renders the entry in ledger line format.
func (e Entry) String() string {
	return e.DiskID + " " + formatGB(e.CapacityGB) + " " + formatGB(e.QuotaGB)
}

func formatGB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseEntry parses a ledger line. Lines with the wrong field count or
// non-numeric size fields yield FormatError.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != entryFields {
		return Entry{}, FormatError{Line: line, Fields: len(fields)}
	}
	capacity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Entry{}, FormatError{Line: line, Fields: len(fields)}
	}
	quota, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Entry{}, FormatError{Line: line, Fields: len(fields)}
	}
	return Entry{DiskID: fields[0], CapacityGB: capacity, QuotaGB: quota}, nil
}

// Ledger is a handle on the shared ledger file. The line-level methods
// assume the caller already holds the exclusive lock; use WithExclusive to
// enter a critical section.
type Ledger struct {
	path        string
	lock        *FileLock
	lockTimeout time.Duration
}

// New creates a handle on the ledger at path. The lock file lives next to
// the ledger so all processes sharing the file contend on the same lock.
func New(path string, lockTimeout time.Duration) *Ledger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Ledger{
		path:        path,
		lock:        NewFileLock(path + ".lock"),
		lockTimeout: lockTimeout,
	}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// WithExclusive runs fn while holding the exclusive ledger lock. Every
// read that feeds a subsequent write must happen inside fn.
func (l *Ledger) WithExclusive(ctx context.Context, fn func() error) error {
	if err := l.lock.Acquire(ctx, l.lockTimeout); err != nil {
		return err
	}
	defer func() {
		if err := l.lock.Release(); err != nil {
			log.Error().Err(err).Str("ledger", l.path).Msg("Failed to release ledger lock")
		}
	}()

	return fn()
}

// readLines re-reads the ledger from disk. A missing file is an empty
// ledger; it is created lazily on first write.
func (l *Ledger) readLines() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

// writeLines rewrites the whole ledger file.
func (l *Ledger) writeLines(lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(l.path, []byte(b.String()), filePerm); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// FindOrCreateLine locates the first line whose leading token equals
// diskID and returns its 1-based index. When absent, a fresh line with the
// probed capacity and zero quota is appended and the scan repeated. Caller
// must hold the exclusive lock.
func (l *Ledger) FindOrCreateLine(diskID string, capacityGB float64) (int, error) {
	index, err := l.FindLine(diskID)
	if err != nil {
		return 0, err
	}
	if index > 0 {
		return index, nil
	}

	entry := Entry{DiskID: diskID, CapacityGB: capacityGB, QuotaGB: 0}
	if err := l.appendLine(entry.String()); err != nil {
		return 0, err
	}
	log.Debug().Str("disk_id", diskID).Float64("capacity_gb", capacityGB).
		Msg("Created ledger entry")

	index, err = l.FindLine(diskID)
	if err != nil {
		return 0, err
	}
	if index == 0 {
		return 0, CorruptError{DiskID: diskID}
	}
	return index, nil
}

// FindLine returns the 1-based index of the first line keyed by diskID,
// or 0 when absent. Caller must hold the exclusive lock.
func (l *Ledger) FindLine(diskID string) (int, error) {
	lines, err := l.readLines()
	if err != nil {
		return 0, err
	}
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == diskID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (l *Ledger) appendLine(line string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// ReadLine returns the raw content of the 1-based line index. Caller must
// hold the exclusive lock.
func (l *Ledger) ReadLine(index int) (string, error) {
	lines, err := l.readLines()
	if err != nil {
		return "", err
	}
	if index < 1 || index > len(lines) {
		return "", ErrLineOutOfRange
	}
	return lines[index-1], nil
}

// ReplaceLine overwrites the 1-based line index with content, preserving
// every other line byte for byte. The replacement must carry the expected
// field count. Caller must hold the exclusive lock.
func (l *Ledger) ReplaceLine(index int, content string) error {
	if fields := strings.Fields(content); len(fields) != entryFields {
		return FormatError{Line: content, Fields: len(fields)}
	}

	lines, err := l.readLines()
	if err != nil {
		return err
	}
	if index < 1 || index > len(lines) {
		return ErrLineOutOfRange
	}
	lines[index-1] = content
	return l.writeLines(lines)
}

// Entries parses every well-formed line in the ledger. Malformed lines are
// skipped with a warning; callers needing strict handling use ReadLine.
func (l *Ledger) Entries() ([]Entry, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entry, err := ParseEntry(line)
		if err != nil {
			log.Warn().Str("line", line).Msg("Skipping malformed ledger line")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
