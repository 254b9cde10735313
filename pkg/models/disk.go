package models

// CapacityInfo describes the filesystem backing a directory.
type CapacityInfo struct {
	TotalGB    float64 `json:"total_gb"`    // Filesystem size
	AvailGB    float64 `json:"avail_gb"`    // Space available to this user
	MountPoint string  `json:"mount_point"` // Mount point backing the probed path
}
