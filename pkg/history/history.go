// Package history keeps a local journal of quota events in SQLite. The
// journal is diagnostic only: recording is best-effort and must never fail
// a job, so callers log errors and move on.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"scratchguard/pkg/models"
)

// ErrDatabaseError wraps underlying SQLite failures.
var ErrDatabaseError = errors.New("history database error")

// Store manages the event journal.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the journal at dbPath.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	ctx := context.Background()

	// Enable WAL mode for better concurrency
	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(ctx, Schema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %w", ErrDatabaseError, err)
	}

	return &Store{db: database}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one event. The timestamp is set here when the caller
// leaves it zero.
func (s *Store) Record(ctx context.Context, event models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, job_id, disk_id, action, amount_gb, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.RunID, event.JobID, event.DiskID, event.Action, event.AmountGB,
		event.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: failed to record event: %w", ErrDatabaseError, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, job_id, disk_id, action, amount_gb, created_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query events: %w", ErrDatabaseError, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		var createdAt string
		if err := rows.Scan(&event.ID, &event.RunID, &event.JobID, &event.DiskID,
			&event.Action, &event.AmountGB, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan event: %w", ErrDatabaseError, err)
		}
		event.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate events: %w", ErrDatabaseError, err)
	}
	return events, nil
}
