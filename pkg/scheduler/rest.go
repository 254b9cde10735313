package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

// Job states that count as occupying the node's disk.
var activeStates = map[string]bool{
	"RUNNING":    true,
	"PENDING":    true,
	"COMPLETING": true,
	"SUSPENDED":  true,
}

// RestClient queries a slurmrestd-style endpoint for the job list.
type RestClient struct {
	endpoint string
	account  string
	client   *retryablehttp.Client
}

// restJob is the subset of the scheduler's job record we care about.
type restJob struct {
	JobID    json.Number `json:"job_id"`
	UserName string      `json:"user_name"`
	Nodes    string      `json:"nodes"`
	JobState string      `json:"job_state"`
}

type restJobList struct {
	Jobs []restJob `json:"jobs"`
}

// NewRestClient creates a scheduler client for the given REST endpoint and
// owning account.
func NewRestClient(endpoint, account string) *RestClient {
	return &RestClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		account:  account,
		client:   createRetryableClient(defaultRetryMax, defaultRetryWaitMin, defaultRetryWaitMax),
	}
}

// createRetryableClient creates a retryable HTTP client for scheduler requests.
func createRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil // Disable retryablehttp logging
	return client
}

// ActiveJobs returns the IDs of this account's jobs active on node.
func (c *RestClient) ActiveJobs(ctx context.Context, node string) ([]string, error) {
	query := url.Values{}
	query.Set("user_name", c.account)

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.endpoint+"/jobs?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scheduler returned status %s", http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var list restJobList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode scheduler response: %w", err)
	}

	var ids []string
	for _, job := range list.Jobs {
		if !activeStates[strings.ToUpper(job.JobState)] {
			continue
		}
		if node != "" && !nodeListContains(job.Nodes, node) {
			continue
		}
		ids = append(ids, job.JobID.String())
	}
	return ids, nil
}

// nodeListContains reports whether a comma-separated scheduler node list
// names the given node.
func nodeListContains(nodeList, node string) bool {
	for _, n := range strings.Split(nodeList, ",") {
		if strings.TrimSpace(n) == node {
			return true
		}
	}
	return false
}
