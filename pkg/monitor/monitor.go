// Package monitor enforces a running job's adherence to its quota
// reservation. It samples the job's actual disk consumption at a fixed
// interval and kills the job when it overruns its reservation or outlives
// the hard runtime ceiling.
package monitor

import (
	"context"
	"time"

	"scratchguard/pkg/log"
	"scratchguard/pkg/units"
)

// DefaultMaxRuntime is the hard wall-clock ceiling: even a job within
// quota is killed after this long, as a runaway-job safeguard.
const DefaultMaxRuntime = 30 * 24 * time.Hour

// DefaultPollInterval between usage samples.
const DefaultPollInterval = 60 * time.Second

// Outcome is the typed result of a monitoring run.
type Outcome int

const (
	// OutcomeCompleted: the monitored command exited on its own.
	OutcomeCompleted Outcome = iota
	// OutcomeQuotaViolated: usage exceeded the reservation; the command
	// was killed.
	OutcomeQuotaViolated
	// OutcomeExpired: the runtime ceiling was hit; the command was killed.
	OutcomeExpired
	// OutcomeProbeFailed: usage could not be sampled; the command was
	// killed because quota can no longer be verified.
	OutcomeProbeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeQuotaViolated:
		return "quota-violated"
	case OutcomeExpired:
		return "expired"
	case OutcomeProbeFailed:
		return "probe-failed"
	}
	return "unknown"
}

// Handle is the monitor's view of the spawned command. Watching an owned
// handle instead of a PID sidesteps PID reuse entirely.
type Handle interface {
	// Done is closed when the command has exited.
	Done() <-chan struct{}
	// Kill forcibly terminates the command and its process group.
	Kill() error
}

// UsageFunc samples the job's current disk consumption in gigabytes.
type UsageFunc func(ctx context.Context) (float64, error)

// Monitor watches one running job.
type Monitor struct {
	QuotaGB      float64
	PollInterval time.Duration
	MaxRuntime   time.Duration
	Usage        UsageFunc
	Handle       Handle

	// UsageSample, when set, receives each successful usage sample.
	UsageSample func(gb float64)
}

// Run executes the monitoring loop until the command completes, violates
// quota, hits the runtime ceiling, or the context is cancelled.
func (m *Monitor) Run(ctx context.Context) (Outcome, error) {
	pollInterval := m.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	maxRuntime := m.MaxRuntime
	if maxRuntime <= 0 {
		maxRuntime = DefaultMaxRuntime
	}

	started := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.Handle.Done():
			return OutcomeCompleted, nil

		case <-ctx.Done():
			return OutcomeCompleted, ctx.Err()

		case <-ticker.C:
			outcome, done, err := m.poll(ctx, started, maxRuntime)
			if done {
				return outcome, err
			}
		}
	}
}

// poll performs one monitoring cycle. done reports whether the loop is
// finished.
func (m *Monitor) poll(ctx context.Context, started time.Time, maxRuntime time.Duration) (Outcome, bool, error) {
	// Re-check completion first so a command that exited during the
	// sleep is not sampled, let alone killed.
	select {
	case <-m.Handle.Done():
		return OutcomeCompleted, true, nil
	default:
	}

	if time.Since(started) > maxRuntime {
		log.Error().Dur("max_runtime", maxRuntime).
			Msg("Runtime ceiling reached; killing job")
		return OutcomeExpired, true, m.Handle.Kill()
	}

	usageGB, err := m.Usage(ctx)
	if err != nil {
		// Quota cannot be verified, so the job cannot be allowed to
		// keep writing.
		log.Error().Err(err).Msg("Usage probe failed; killing job")
		killErr := m.Handle.Kill()
		if killErr != nil {
			return OutcomeProbeFailed, true, killErr
		}
		return OutcomeProbeFailed, true, err
	}

	if m.UsageSample != nil {
		m.UsageSample(usageGB)
	}

	if usageGB > m.QuotaGB {
		log.Error().Str("usage", units.FormatGB(usageGB)).
			Str("quota", units.FormatGB(m.QuotaGB)).
			Msg("Disk usage exceeds reservation; killing job")
		return OutcomeQuotaViolated, true, m.Handle.Kill()
	}

	log.Debug().Str("usage", units.FormatGB(usageGB)).
		Str("quota", units.FormatGB(m.QuotaGB)).
		Msg("Usage within reservation")
	return 0, false, nil
}
