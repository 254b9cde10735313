package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"scratchguard/pkg/models"
)

// HistoryTestSuite tests the event journal
type HistoryTestSuite struct {
	suite.Suite
	store *Store
}

// SetupTest runs before each test
func (s *HistoryTestSuite) SetupTest() {
	store, err := NewStore(filepath.Join(s.T().TempDir(), "history.db"))
	s.Require().NoError(err)
	s.store = store
}

// TearDownTest runs after each test
func (s *HistoryTestSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

// TestRecordAndRecent tests the round trip through the journal
func (s *HistoryTestSuite) TestRecordAndRecent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Record(ctx, models.Event{
		RunID:    "run-1",
		JobID:    "4242",
		DiskID:   "NODE1",
		Action:   models.ActionReserve,
		AmountGB: 10,
	}))
	s.Require().NoError(s.store.Record(ctx, models.Event{
		RunID:    "run-1",
		JobID:    "4242",
		DiskID:   "NODE1",
		Action:   models.ActionRelease,
		AmountGB: 10,
	}))

	events, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	// Newest first.
	s.Equal(models.ActionRelease, events[0].Action)
	s.Equal(models.ActionReserve, events[1].Action)
	s.Equal("NODE1", events[0].DiskID)
	s.Equal(10.0, events[0].AmountGB)
	s.False(events[0].CreatedAt.IsZero())
}

// TestRecentLimit tests the result cap
func (s *HistoryTestSuite) TestRecentLimit() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Record(ctx, models.Event{
			RunID:  "run-1",
			DiskID: "BLUE",
			Action: models.ActionReconcile,
		}))
	}

	events, err := s.store.Recent(ctx, 3)
	s.Require().NoError(err)
	s.Len(events, 3)
}

// TestRecentEmpty tests querying a fresh journal
func (s *HistoryTestSuite) TestRecentEmpty() {
	events, err := s.store.Recent(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(events)
}

// TestHistorySuite runs the history test suite
func TestHistorySuite(t *testing.T) {
	suite.Run(t, new(HistoryTestSuite))
}
