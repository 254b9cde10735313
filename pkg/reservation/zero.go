package reservation

import (
	"context"

	"scratchguard/pkg/ledger"
	"scratchguard/pkg/log"
)

// Zero resets an identity's reserved quota to zero under the exclusive
// ledger lock. It is the manual escape hatch for operators cleaning up
// after a crashed job when no scheduler query is available. A missing
// line is not an error; there is nothing to release.
func Zero(ctx context.Context, led *ledger.Ledger, diskID string) error {
	return led.WithExclusive(ctx, func() error {
		index, err := led.FindLine(diskID)
		if err != nil {
			return err
		}
		if index == 0 {
			log.Warn().Str("disk_id", diskID).Msg("No ledger line to release")
			return nil
		}

		line, err := led.ReadLine(index)
		if err != nil {
			return err
		}

		entry, err := ledger.ParseEntry(line)
		if err != nil {
			return err
		}

		log.Info().Str("disk_id", diskID).Float64("released_gb", entry.QuotaGB).
			Msg("Quota reset by operator")
		entry.QuotaGB = 0
		return led.ReplaceLine(index, entry.String())
	})
}
