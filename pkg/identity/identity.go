// Package identity maps a host and mount point onto the disk identity used
// to key the quota ledger. Scratch-like mounts get a host-derived identity
// so sibling nodes of one physical host share a quota domain; the shared
// volumes and home get fixed tokens.
package identity

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"scratchguard/pkg/disk"
)

// Fixed tokens for the shared quota domains.
const (
	TokenBlue = "BLUE"
	TokenRed  = "RED"
	TokenHome = "HOME"
)

// nodeSuffix matches the trailing node number in cluster host names, e.g.
// "cn042" or "node-17". Stripping it groups sibling nodes under one
// identity.
var nodeSuffix = regexp.MustCompile(`-?[0-9]+$`)

// Prefixes is the mount-point classification table. Matching is by path
// prefix, in the order scratch, blue, red, home.
type Prefixes struct {
	Scratch    string
	VolumeBlue string
	VolumeRed  string
	Home       string
}

// DefaultPrefixes returns the classification table for the standard
// cluster layout.
func DefaultPrefixes() Prefixes {
	return Prefixes{
		Scratch:    "/scratch",
		VolumeBlue: "/vol/blue",
		VolumeRed:  "/vol/red",
		Home:       "/home",
	}
}

// UnknownMountError is returned for mount points outside the
// classification table. There is no quota policy for unclassified storage,
// so this is fatal.
type UnknownMountError struct {
	Host       string
	MountPoint string
}

func (e UnknownMountError) Error() string {
	return "no quota policy for mount " + strconv.Quote(e.MountPoint) + " on host " + e.Host
}

// Classify derives the disk identity for a host and mount point.
func Classify(host, mountPoint string, prefixes Prefixes) (string, error) {
	switch {
	case hasPrefix(mountPoint, prefixes.Scratch):
		return StripNodeSuffix(host), nil
	case hasPrefix(mountPoint, prefixes.VolumeBlue):
		return TokenBlue, nil
	case hasPrefix(mountPoint, prefixes.VolumeRed):
		return TokenRed, nil
	case hasPrefix(mountPoint, prefixes.Home):
		return TokenHome, nil
	}
	return "", UnknownMountError{Host: host, MountPoint: mountPoint}
}

// StripNodeSuffix removes the trailing node number from a cluster host
// name: "cn042" -> "cn", "node-17" -> "node".
func StripNodeSuffix(host string) string {
	stripped := nodeSuffix.ReplaceAllString(host, "")
	if stripped == "" {
		// A purely numeric host name stays as-is rather than collapsing
		// to the empty identity.
		return host
	}
	return stripped
}

// hasPrefix is a raw string-prefix match so that numbered variants such as
// /scratch2 classify the same as /scratch.
func hasPrefix(mountPoint, prefix string) bool {
	return prefix != "" && strings.HasPrefix(mountPoint, prefix)
}

// Resolve determines the disk identity for the current working directory:
// it probes the backing mount point and classifies it together with the
// local host name.
func Resolve(workDir string, prefixes Prefixes) (string, error) {
	info, err := disk.Capacity(workDir)
	if err != nil {
		return "", err
	}
	host, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return Classify(host, info.MountPoint, prefixes)
}
