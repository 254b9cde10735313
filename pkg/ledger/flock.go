package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// How often a blocked waiter re-attempts the lock.
const lockRetryInterval = 250 * time.Millisecond

// FileLock provides cross-process mutual exclusion over the ledger using
// flock(2). Every job process on the cluster contends on the same lock
// file; a crashed holder releases the lock automatically when the kernel
// closes its descriptor.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a FileLock on the given lock file path. Call
// Acquire/Release to enter and leave the critical section.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if it is held by another process.
func (fl *FileLock) TryLock() (bool, error) {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	fl.file = f
	return true, nil
}

// Acquire obtains the exclusive lock, retrying until the timeout elapses
// or the context is cancelled. A timeout yields LockTimeoutError.
func (fl *FileLock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		ok, err := fl.TryLock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return LockTimeoutError{Path: fl.path, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// Release releases the file lock and closes the lock file.
func (fl *FileLock) Release() error {
	if fl.file == nil {
		return nil
	}

	if err := unix.Flock(int(fl.file.Fd()), unix.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
