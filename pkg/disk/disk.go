// Package disk probes the filesystem backing a directory: total capacity,
// available space, the mount point, and recursive usage of a tree.
package disk

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"scratchguard/pkg/models"
)

const mountsFile = "/proc/self/mounts"

// ProbeError is returned when a filesystem probe fails. Quota decisions
// cannot be made without probe results, so callers treat this as fatal
// everywhere except the garbage-collection path.
type ProbeError struct {
	Op   string
	Path string
	Err  error
}

func (e ProbeError) Error() string {
	return "disk probe " + e.Op + " failed for " + e.Path + ": " + e.Err.Error()
}

func (e ProbeError) Unwrap() error {
	return e.Err
}

// Capacity returns size information for the filesystem backing path.
func Capacity(path string) (*models.CapacityInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ProbeError{Op: "resolve", Path: path, Err: err}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(abs, &stat); err != nil {
		return nil, ProbeError{Op: "statfs", Path: abs, Err: err}
	}

	bsize := uint64(stat.Bsize)

	mountPoint, err := mountPointOf(abs)
	if err != nil {
		return nil, err
	}

	return &models.CapacityInfo{
		TotalGB:    float64(stat.Blocks*bsize) / 1e9,
		AvailGB:    float64(stat.Bavail*bsize) / 1e9,
		MountPoint: mountPoint,
	}, nil
}

// mountPointOf resolves the mount point backing path by longest-prefix
// match over the mount table.
func mountPointOf(path string) (string, error) {
	f, err := os.Open(mountsFile)
	if err != nil {
		return "", ProbeError{Op: "mounts", Path: path, Err: err}
	}
	defer f.Close()

	return matchMountPoint(f, path)
}

// matchMountPoint scans a /proc/self/mounts style listing and returns the
// longest mount point that is a path prefix of path.
func matchMountPoint(r io.Reader, path string) (string, error) {
	best := ""
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		mp := unescapeMount(fields[1])
		if isPathPrefix(mp, path) && len(mp) > len(best) {
			best = mp
		}
	}
	if err := scanner.Err(); err != nil {
		return "", ProbeError{Op: "mounts", Path: path, Err: err}
	}
	if best == "" {
		best = "/"
	}
	return best, nil
}

func isPathPrefix(mountPoint, path string) bool {
	if mountPoint == "/" {
		return true
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}

// unescapeMount decodes the octal escapes the kernel uses for whitespace
// in mount paths.
func unescapeMount(s string) string {
	replacer := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return replacer.Replace(s)
}
