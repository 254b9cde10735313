package reservation

import (
	"context"

	"scratchguard/pkg/ledger"
	"scratchguard/pkg/log"
)

// reconcile is the garbage-collection pass: if the scheduler reports no
// active jobs on this identity's node beyond the caller's own, the
// identity's reserved quota is reset to zero, reclaiming quota abandoned
// by jobs that crashed without releasing.
//
// This is a heuristic, eventually-consistent reconciliation, not a precise
// accounting: the scheduler's job list is trusted as ground truth and the
// quota is overwritten, not merged. A query failure degrades to "no active
// jobs". Lock must be held.
func (m *Manager) reconcile(ctx context.Context) error {
	if m.sched == nil {
		return nil
	}

	jobIDs, err := m.sched.ActiveJobs(ctx, m.node)
	if err != nil {
		log.Warn().Err(err).Str("node", m.node).
			Msg("Scheduler query failed; assuming no active jobs")
		jobIDs = nil
	}

	for _, id := range jobIDs {
		if id != m.ownJobID {
			// Another job is live on this node; its reservation stands.
			return nil
		}
	}

	index, err := m.ledger.FindLine(m.diskID)
	if err != nil {
		return err
	}
	if index == 0 {
		return nil
	}

	line, err := m.ledger.ReadLine(index)
	if err != nil {
		return err
	}

	entry, err := ledger.ParseEntry(line)
	if err != nil {
		// The zeroing below rewrites the line anyway; recover the
		// capacity from a fresh probe.
		capacityGB, capErr := m.capacity()
		if capErr != nil {
			return capErr
		}
		log.Warn().Str("disk_id", m.diskID).Str("line", line).
			Msg("Resetting quota on malformed ledger line")
		reset := ledger.Entry{DiskID: m.diskID, CapacityGB: capacityGB}
		return m.ledger.ReplaceLine(index, reset.String())
	}

	if entry.QuotaGB == 0 {
		return nil
	}

	log.Info().Str("disk_id", m.diskID).Float64("reclaimed_gb", entry.QuotaGB).
		Msg("No other active jobs; reclaiming reserved quota")
	entry.QuotaGB = 0
	return m.ledger.ReplaceLine(index, entry.String())
}
