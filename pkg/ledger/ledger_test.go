package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// LedgerTestSuite tests the ledger store line operations
type LedgerTestSuite struct {
	suite.Suite
	dir    string
	ledger *Ledger
}

// SetupTest runs before each test
func (s *LedgerTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.ledger = New(filepath.Join(s.dir, "ledger"), time.Second)
}

func (s *LedgerTestSuite) write(content string) {
	s.Require().NoError(os.WriteFile(s.ledger.Path(), []byte(content), 0644))
}

func (s *LedgerTestSuite) read() string {
	data, err := os.ReadFile(s.ledger.Path())
	s.Require().NoError(err)
	return string(data)
}

// TestFindOrCreateOnEmptyLedger tests lazy creation of the first entry
func (s *LedgerTestSuite) TestFindOrCreateOnEmptyLedger() {
	index, err := s.ledger.FindOrCreateLine("NODE1", 100)
	s.Require().NoError(err)
	s.Equal(1, index)

	s.Equal("NODE1 100 0\n", s.read())
}

// TestFindOrCreateExisting tests that an existing line is located, not duplicated
func (s *LedgerTestSuite) TestFindOrCreateExisting() {
	s.write("NODE1 100 10\nBLUE 500 25\n")

	index, err := s.ledger.FindOrCreateLine("BLUE", 999)
	s.Require().NoError(err)
	s.Equal(2, index)

	// Capacity is captured at first creation only; the probe value passed
	// here must not overwrite it.
	s.Equal("NODE1 100 10\nBLUE 500 25\n", s.read())
}

// TestFindOrCreateAppends tests appending a new identity below existing lines
func (s *LedgerTestSuite) TestFindOrCreateAppends() {
	s.write("NODE1 100 10\n")

	index, err := s.ledger.FindOrCreateLine("HOME", 2000)
	s.Require().NoError(err)
	s.Equal(2, index)
	s.Equal("NODE1 100 10\nHOME 2000 0\n", s.read())
}

// TestReadLine tests line retrieval by 1-based index
func (s *LedgerTestSuite) TestReadLine() {
	s.write("NODE1 100 10\nBLUE 500 25\n")

	line, err := s.ledger.ReadLine(2)
	s.Require().NoError(err)
	s.Equal("BLUE 500 25", line)

	_, err = s.ledger.ReadLine(3)
	s.ErrorIs(err, ErrLineOutOfRange)
	_, err = s.ledger.ReadLine(0)
	s.ErrorIs(err, ErrLineOutOfRange)
}

// TestReplaceLineRoundTrip tests that replacing a line with its own
// content leaves the ledger byte-identical
func (s *LedgerTestSuite) TestReplaceLineRoundTrip() {
	original := "NODE1 100 10\nBLUE 500 25\nRED 300 5\n"
	s.write(original)

	line, err := s.ledger.ReadLine(2)
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.ReplaceLine(2, line))

	s.Equal(original, s.read())
}

// TestReplaceLineTargeted tests that only the addressed line changes
func (s *LedgerTestSuite) TestReplaceLineTargeted() {
	s.write("NODE1 100 10\nBLUE 500 25\n")

	s.Require().NoError(s.ledger.ReplaceLine(1, "NODE1 100 20"))
	s.Equal("NODE1 100 20\nBLUE 500 25\n", s.read())
}

// TestReplaceLineRejectsBadFieldCount tests format validation of replacements
func (s *LedgerTestSuite) TestReplaceLineRejectsBadFieldCount() {
	s.write("NODE1 100 10\n")

	err := s.ledger.ReplaceLine(1, "NODE1 100")
	var formatErr FormatError
	s.True(errors.As(err, &formatErr))
	s.Equal(2, formatErr.Fields)

	// Ledger unchanged on rejection.
	s.Equal("NODE1 100 10\n", s.read())
}

// TestParseEntry tests ledger line parsing
func (s *LedgerTestSuite) TestParseEntry() {
	entry, err := ParseEntry("NODE1 100 10.5")
	s.Require().NoError(err)
	s.Equal(Entry{DiskID: "NODE1", CapacityGB: 100, QuotaGB: 10.5}, entry)
}

// TestParseEntryMalformed tests rejection of corrupt lines
func (s *LedgerTestSuite) TestParseEntryMalformed() {
	for _, line := range []string{"", "NODE1", "NODE1 100", "NODE1 100 10 extra", "NODE1 abc 10", "NODE1 100 xyz"} {
		_, err := ParseEntry(line)
		var formatErr FormatError
		s.True(errors.As(err, &formatErr), "line %q should be rejected", line)
	}
}

// TestEntryString tests rendering back to ledger format
func (s *LedgerTestSuite) TestEntryString() {
	s.Equal("NODE1 100 10", Entry{DiskID: "NODE1", CapacityGB: 100, QuotaGB: 10}.String())
	s.Equal("BLUE 500 2.5", Entry{DiskID: "BLUE", CapacityGB: 500, QuotaGB: 2.5}.String())
}

// TestEntries tests bulk parsing with malformed lines skipped
func (s *LedgerTestSuite) TestEntries() {
	s.write("NODE1 100 10\ngarbage line here and more\nBLUE 500 25\n")

	entries, err := s.ledger.Entries()
	s.Require().NoError(err)
	s.Len(entries, 2)
	s.Equal("NODE1", entries[0].DiskID)
	s.Equal("BLUE", entries[1].DiskID)
}

// TestLedgerSuite runs the ledger test suite
func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

// PruneTestSuite tests duplicate-line pruning
type PruneTestSuite struct {
	suite.Suite
	ledger *Ledger
}

// SetupTest runs before each test
func (s *PruneTestSuite) SetupTest() {
	s.ledger = New(filepath.Join(s.T().TempDir(), "ledger"), time.Second)
}

func (s *PruneTestSuite) write(content string) {
	s.Require().NoError(os.WriteFile(s.ledger.Path(), []byte(content), 0644))
}

func (s *PruneTestSuite) read() string {
	data, err := os.ReadFile(s.ledger.Path())
	s.Require().NoError(err)
	return string(data)
}

// TestPruneKeepsFirstDuplicate tests that the first racy duplicate wins
func (s *PruneTestSuite) TestPruneKeepsFirstDuplicate() {
	s.write("NODE3 100 10\nBLUE 500 25\nNODE3 100 0\n")

	removed, err := s.ledger.Prune()
	s.Require().NoError(err)
	s.Equal(1, removed)
	s.Equal("NODE3 100 10\nBLUE 500 25\n", s.read())
}

// TestPrunePreservesOrder tests relative order of retained lines
func (s *PruneTestSuite) TestPrunePreservesOrder() {
	s.write("RED 1 1\nBLUE 2 2\nRED 3 3\nHOME 4 4\nBLUE 5 5\n")

	_, err := s.ledger.Prune()
	s.Require().NoError(err)
	s.Equal("RED 1 1\nBLUE 2 2\nHOME 4 4\n", s.read())
}

// TestPruneIdempotent tests that a second prune is a no-op
func (s *PruneTestSuite) TestPruneIdempotent() {
	s.write("NODE3 100 10\nNODE3 100 0\nBLUE 500 25\n")

	_, err := s.ledger.Prune()
	s.Require().NoError(err)
	afterFirst := s.read()

	removed, err := s.ledger.Prune()
	s.Require().NoError(err)
	s.Equal(0, removed)
	s.Equal(afterFirst, s.read())
}

// TestPruneRawTokenComparison tests that tokens differing only in case are
// distinct identities; matching is on the raw token
func (s *PruneTestSuite) TestPruneRawTokenComparison() {
	s.write("node3 100 10\nNODE3 100 0\n")

	removed, err := s.ledger.Prune()
	s.Require().NoError(err)
	s.Equal(0, removed)
	s.Equal("node3 100 10\nNODE3 100 0\n", s.read())
}

// TestPruneEmptyLedger tests pruning before the file exists
func (s *PruneTestSuite) TestPruneEmptyLedger() {
	removed, err := s.ledger.Prune()
	s.Require().NoError(err)
	s.Equal(0, removed)
}

// TestPruneSuite runs the prune test suite
func TestPruneSuite(t *testing.T) {
	suite.Run(t, new(PruneTestSuite))
}

// LockTestSuite tests the exclusive-lock discipline
type LockTestSuite struct {
	suite.Suite
	dir string
}

// SetupTest runs before each test
func (s *LockTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

// TestAcquireRelease tests a plain acquire/release cycle
func (s *LockTestSuite) TestAcquireRelease() {
	lock := NewFileLock(filepath.Join(s.dir, "ledger.lock"))

	s.Require().NoError(lock.Acquire(context.Background(), time.Second))
	s.Require().NoError(lock.Release())

	// Reacquire after release must succeed immediately.
	s.Require().NoError(lock.Acquire(context.Background(), time.Second))
	s.Require().NoError(lock.Release())
}

// TestTryLockContention tests that a held lock is reported busy.
// Separate FileLock values open separate descriptors, so flock treats
// them like independent processes.
func (s *LockTestSuite) TestTryLockContention() {
	path := filepath.Join(s.dir, "ledger.lock")
	holder := NewFileLock(path)
	waiter := NewFileLock(path)

	ok, err := holder.TryLock()
	s.Require().NoError(err)
	s.Require().True(ok)
	defer holder.Release()

	ok, err = waiter.TryLock()
	s.Require().NoError(err)
	s.False(ok)
}

// TestAcquireTimeout tests the bounded wait
func (s *LockTestSuite) TestAcquireTimeout() {
	path := filepath.Join(s.dir, "ledger.lock")
	holder := NewFileLock(path)
	waiter := NewFileLock(path)

	ok, err := holder.TryLock()
	s.Require().NoError(err)
	s.Require().True(ok)
	defer holder.Release()

	err = waiter.Acquire(context.Background(), 300*time.Millisecond)
	var timeoutErr LockTimeoutError
	s.True(errors.As(err, &timeoutErr))
}

// TestWithExclusiveSerializes tests mutual exclusion of critical sections
func (s *LockTestSuite) TestWithExclusiveSerializes() {
	led := New(filepath.Join(s.dir, "ledger"), 5*time.Second)
	other := New(filepath.Join(s.dir, "ledger"), 5*time.Second)

	inside := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- led.WithExclusive(context.Background(), func() error {
			close(inside)
			<-proceed
			return nil
		})
	}()

	<-inside
	// While the first section runs, the second handle must not get in.
	ok, err := other.lock.TryLock()
	s.Require().NoError(err)
	s.False(ok)

	close(proceed)
	s.Require().NoError(<-done)

	// After the first section finishes the lock is free again.
	s.Require().NoError(other.WithExclusive(context.Background(), func() error { return nil }))
}

// TestWithExclusivePropagatesError tests that fn errors surface
func (s *LockTestSuite) TestWithExclusivePropagatesError() {
	led := New(filepath.Join(s.dir, "ledger"), time.Second)
	sentinel := errors.New("boom")

	err := led.WithExclusive(context.Background(), func() error { return sentinel })
	s.ErrorIs(err, sentinel)
}

// TestLockSuite runs the lock test suite
func TestLockSuite(t *testing.T) {
	suite.Run(t, new(LockTestSuite))
}
