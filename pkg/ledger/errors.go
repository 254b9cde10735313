package ledger

import (
	"fmt"
	"time"
)

// LockTimeoutError is returned when the exclusive ledger lock could not be
// acquired within the bounded wait. Fatal during reservation; best-effort
// paths log and continue.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e LockTimeoutError) Error() string {
	return fmt.Sprintf("ledger lock on %s not acquired within %s", e.Path, e.Timeout)
}

// CorruptError is returned when an identity cannot be located even after
// its line was appended, which indicates a concurrent unexpected mutation.
type CorruptError struct {
	DiskID string
}

func (e CorruptError) Error() string {
	return "ledger corrupt: identity " + e.DiskID + " not found after creation"
}

// FormatError is returned for ledger lines that do not carry the expected
// identity, capacity and quota fields.
type FormatError struct {
	Line   string
	Fields int
}

func (e FormatError) Error() string {
	return fmt.Sprintf("malformed ledger line %q: %d fields, want %d", e.Line, e.Fields, entryFields)
}
