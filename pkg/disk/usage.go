package disk

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"scratchguard/pkg/log"
)

// duTimeout bounds a single usage sample. Large scratch trees can take a
// while to walk, so this is generous compared to the poll interval.
const duTimeout = 5 * time.Minute

// Usage returns the recursive disk usage of the directory tree rooted at
// path, in gigabytes. It shells out to du so that sparse files and hard
// links are accounted the same way operators see them.
func Usage(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, duTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "du", "-sk", path)
	output, err := cmd.Output()
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Usage probe failed")
		return 0, ProbeError{Op: "du", Path: path, Err: err}
	}

	return parseDuOutput(string(output), path)
}

// parseDuOutput extracts the KiB count from `du -sk` output.
func parseDuOutput(output, path string) (float64, error) {
	fields := strings.Fields(output)
	if len(fields) < 1 {
		return 0, ProbeError{Op: "du", Path: path, Err: errEmptyOutput}
	}
	kib, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, ProbeError{Op: "du", Path: path, Err: err}
	}
	return float64(kib) * 1024 / 1e9, nil
}

var errEmptyOutput = errors.New("empty du output")
