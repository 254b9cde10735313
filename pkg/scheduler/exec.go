package scheduler

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"scratchguard/pkg/log"
)

const squeueTimeout = 30 * time.Second

// ExecClient queries the job list by shelling out to squeue, for clusters
// without a scheduler REST endpoint.
type ExecClient struct {
	account string
}

// NewExecClient creates a squeue-based scheduler client for the owning
// account.
func NewExecClient(account string) *ExecClient {
	return &ExecClient{account: account}
}

// ActiveJobs returns the IDs of this account's jobs active on node.
func (c *ExecClient) ActiveJobs(ctx context.Context, node string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, squeueTimeout)
	defer cancel()

	args := []string{"-h", "-o", "%A"}
	if node != "" {
		args = append(args, "-w", node)
	}
	if c.account != "" {
		args = append(args, "-u", c.account)
	}

	cmd := exec.CommandContext(ctx, "squeue", args...)
	output, err := cmd.Output()
	if err != nil {
		log.Debug().Err(err).Str("node", node).Msg("squeue query failed")
		return nil, err
	}

	return parseSqueueOutput(string(output)), nil
}

// parseSqueueOutput extracts one job ID per non-empty line.
func parseSqueueOutput(output string) []string {
	var ids []string
	for _, line := range strings.Split(output, "\n") {
		id := strings.TrimSpace(line)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
