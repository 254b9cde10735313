// Package scheduler queries the batch scheduler for the jobs currently
// active on a node. The garbage collector uses the result as ground truth
// when deciding whether a disk identity's reserved quota can be reclaimed.
package scheduler

import "context"

// Client returns the set of active job IDs for the owning account on a
// node. Implementations must treat "no jobs" and "cannot tell" uniformly
// at the call site: the garbage collector degrades both to the empty set.
type Client interface {
	ActiveJobs(ctx context.Context, node string) ([]string, error)
}
