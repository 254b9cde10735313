// Package reservation implements the quota reservation protocol: under the
// exclusive ledger lock, locate or create the disk identity's line, apply
// the quota delta with headroom validation, and write back. The reserved
// quota for an identity is, in spirit, the sum of all active jobs'
// reservations, maintained incrementally rather than recomputed.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"scratchguard/pkg/ledger"
	"scratchguard/pkg/log"
	"scratchguard/pkg/scheduler"
	"scratchguard/pkg/units"
)

// CapacityFunc probes the capacity of the filesystem backing the working
// directory, in gigabytes. Consulted only when an identity's line is first
// created; the recorded capacity is not refreshed afterwards.
type CapacityFunc func() (float64, error)

// QuotaExceededError is returned when a reservation would push the
// identity's reserved quota past its capacity. The ledger is left
// unchanged.
type QuotaExceededError struct {
	DiskID      string
	RequestedGB float64
	CapacityGB  float64
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded on %s: %s requested of %s capacity",
		e.DiskID, units.FormatGB(e.RequestedGB), units.FormatGB(e.CapacityGB))
}

// Manager runs the reservation protocol for one disk identity on behalf of
// one job process.
type Manager struct {
	ledger   *ledger.Ledger
	diskID   string
	node     string
	ownJobID string
	capacity CapacityFunc
	sched    scheduler.Client
}

// New creates a reservation manager. node is the scheduler's name for the
// local host, used by the garbage-collection pass; sched may be nil to
// disable reconciliation.
func New(led *ledger.Ledger, diskID, node, ownJobID string, capacity CapacityFunc, sched scheduler.Client) *Manager {
	return &Manager{
		ledger:   led,
		diskID:   diskID,
		node:     node,
		ownJobID: ownJobID,
		capacity: capacity,
		sched:    sched,
	}
}

// DiskID returns the identity this manager operates on.
func (m *Manager) DiskID() string {
	return m.diskID
}

// Reserve claims gb gigabytes of quota for this job. It runs the
// reconciliation pass first so that quota leaked by crashed jobs does not
// block a node that is actually idle. All failures are surfaced: a job
// must not start without a confirmed reservation.
func (m *Manager) Reserve(ctx context.Context, gb float64) error {
	return m.ledger.WithExclusive(ctx, func() error {
		if err := m.reconcile(ctx); err != nil {
			return err
		}
		if err := m.applyDelta(gb, false); err != nil {
			return err
		}
		log.Info().Str("disk_id", m.diskID).Str("quota", units.FormatGB(gb)).
			Msg("Quota reserved")
		return nil
	})
}

// Release returns gb gigabytes of quota, then reconciles and prunes the
// ledger. Release is best-effort: the job is ending regardless, and an
// unreleased reservation is a controlled leak the next reconciliation
// reclaims. Lock timeouts are therefore logged, not surfaced.
func (m *Manager) Release(ctx context.Context, gb float64) error {
	err := m.ledger.WithExclusive(ctx, func() error {
		if err := m.applyDelta(-gb, true); err != nil {
			return err
		}
		if err := m.reconcile(ctx); err != nil {
			return err
		}
		if _, err := m.ledger.Prune(); err != nil {
			return err
		}
		log.Info().Str("disk_id", m.diskID).Str("quota", units.FormatGB(gb)).
			Msg("Quota released")
		return nil
	})

	var lockTimeout ledger.LockTimeoutError
	if errors.As(err, &lockTimeout) {
		log.Warn().Err(err).Str("disk_id", m.diskID).
			Msg("Ledger lock not acquired during release; leaving cleanup to reconciliation")
		return nil
	}
	return err
}

// applyDelta adjusts the identity's reserved quota by deltaGB, clamping at
// zero and validating capacity headroom. With heal set, a malformed line
// is replaced by a zero-quota line instead of failing; Reserve runs
// without healing so it never proceeds on corrupt state. Lock must be
// held.
func (m *Manager) applyDelta(deltaGB float64, heal bool) error {
	capacityGB, err := m.capacity()
	if err != nil {
		return err
	}

	index, err := m.ledger.FindOrCreateLine(m.diskID, capacityGB)
	if err != nil {
		return err
	}

	line, err := m.ledger.ReadLine(index)
	if err != nil {
		return err
	}

	entry, err := ledger.ParseEntry(line)
	if err != nil {
		if !heal {
			return err
		}
		// Self-heal: reset the identity's quota to zero rather than
		// leaving malformed state in place.
		log.Warn().Str("disk_id", m.diskID).Str("line", line).
			Msg("Resetting quota on malformed ledger line")
		reset := ledger.Entry{DiskID: m.diskID, CapacityGB: capacityGB, QuotaGB: 0}
		return m.ledger.ReplaceLine(index, reset.String())
	}

	newQuota := entry.QuotaGB + deltaGB
	if newQuota < 0 {
		newQuota = 0
	}
	if newQuota > entry.CapacityGB {
		return QuotaExceededError{
			DiskID:      m.diskID,
			RequestedGB: newQuota,
			CapacityGB:  entry.CapacityGB,
		}
	}

	entry.QuotaGB = newQuota
	return m.ledger.ReplaceLine(index, entry.String())
}
