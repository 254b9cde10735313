package models

// Reservation is the process-local view of a job's claimed quota slice.
// It is never shared between job processes; the ledger is the only shared
// record.
type Reservation struct {
	DiskID      string  `json:"disk_id"`
	QuotaGB     float64 `json:"quota_gb"`      // The slice this job reserved
	DiskUsageGB float64 `json:"disk_usage_gb"` // Last sampled usage, refreshed by the monitor
}
