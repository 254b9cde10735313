package models

import "time"

// Event actions recorded in the history journal.
const (
	ActionReserve   = "reserve"
	ActionRelease   = "release"
	ActionReconcile = "reconcile"
	ActionViolation = "violation"
	ActionExpired   = "expired"
	ActionKill      = "kill"
)

// Event is one row in the quota history journal.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"` // Wrapper invocation this event belongs to
	JobID     string    `json:"job_id"` // Scheduler job ID, if any
	DiskID    string    `json:"disk_id"`
	Action    string    `json:"action"`
	AmountGB  float64   `json:"amount_gb"`
	CreatedAt time.Time `json:"created_at"`
}
