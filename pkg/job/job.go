// Package job orchestrates one quota-guarded batch job: reserve quota,
// spawn the user command under the usage monitor, and release the
// reservation when the command ends.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scratchguard/pkg/config"
	"scratchguard/pkg/disk"
	"scratchguard/pkg/history"
	"scratchguard/pkg/identity"
	"scratchguard/pkg/ledger"
	"scratchguard/pkg/log"
	"scratchguard/pkg/models"
	"scratchguard/pkg/monitor"
	"scratchguard/pkg/reservation"
	"scratchguard/pkg/scheduler"
	"scratchguard/pkg/units"
)

// ledgerFileName is used when no explicit ledger path is configured: the
// ledger then lives at the root of the mount it accounts for, so every
// job sharing the mount shares the ledger.
const ledgerFileName = ".scratchguard_ledger"

var errNotReserved = errors.New("no active reservation")

// LedgerPath resolves the ledger location for jobs running in workDir:
// the configured path when set, otherwise the root of workDir's mount.
func LedgerPath(cfg *config.Config, workDir string) (string, error) {
	if cfg.Ledger.Path != "" {
		return cfg.Ledger.Path, nil
	}
	info, err := disk.Capacity(workDir)
	if err != nil {
		return "", err
	}
	return ledgerPathFor(cfg, info.MountPoint), nil
}

func ledgerPathFor(cfg *config.Config, mountPoint string) string {
	if cfg.Ledger.Path != "" {
		return cfg.Ledger.Path
	}
	return filepath.Join(mountPoint, ledgerFileName)
}

// Job ties together the reservation, monitoring and history journaling
// for a single wrapper invocation.
type Job struct {
	cfg     *config.Config
	runID   string
	jobID   string
	workDir string
	diskID  string

	led     *ledger.Ledger
	manager *reservation.Manager
	hist    *history.Store

	res      models.Reservation
	reserved bool
	handle   *cmdHandle
}

// New resolves the disk identity for workDir and wires up the ledger,
// scheduler client and history journal from cfg.
func New(cfg *config.Config, workDir string) (*Job, error) {
	info, err := disk.Capacity(workDir)
	if err != nil {
		return nil, err
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	prefixes := identity.Prefixes{
		Scratch:    cfg.Mounts.Scratch,
		VolumeBlue: cfg.Mounts.VolumeBlue,
		VolumeRed:  cfg.Mounts.VolumeRed,
		Home:       cfg.Mounts.Home,
	}
	diskID, err := identity.Classify(host, info.MountPoint, prefixes)
	if err != nil {
		return nil, err
	}

	ledgerPath := ledgerPathFor(cfg, info.MountPoint)
	led := ledger.New(ledgerPath, cfg.Ledger.LockTimeout)

	var sched scheduler.Client
	if cfg.Scheduler.Endpoint != "" {
		sched = scheduler.NewRestClient(cfg.Scheduler.Endpoint, cfg.Scheduler.Account)
	} else {
		sched = scheduler.NewExecClient(cfg.Scheduler.Account)
	}

	capacity := func() (float64, error) {
		info, err := disk.Capacity(workDir)
		if err != nil {
			return 0, err
		}
		return info.TotalGB, nil
	}

	jobID := log.BatchJobID()
	j := &Job{
		cfg:     cfg,
		runID:   uuid.NewString(),
		jobID:   jobID,
		workDir: workDir,
		diskID:  diskID,
		led:     led,
		manager: reservation.New(led, diskID, host, jobID, capacity, sched),
	}
	j.hist = openHistory(cfg)

	log.Debug().Str("run_id", j.runID).Str("disk_id", diskID).
		Str("ledger", ledgerPath).Msg("Job initialized")
	return j, nil
}

// DiskID returns the disk identity this job reserves against.
func (j *Job) DiskID() string {
	return j.diskID
}

// Reservation returns the process-local view of this job's claim,
// including the last sampled usage.
func (j *Job) Reservation() models.Reservation {
	return j.res
}

// RunID returns the unique ID of this wrapper invocation.
func (j *Job) RunID() string {
	return j.runID
}

// Ledger returns the ledger this job coordinates through.
func (j *Job) Ledger() *ledger.Ledger {
	return j.led
}

// Start parses the requested quota size and claims it in the ledger. On
// any failure onFailure is invoked before the error is surfaced; the
// caller must not run the user command without a confirmed reservation.
func (j *Job) Start(ctx context.Context, quotaSize string, onFailure func(error)) error {
	fail := func(err error) error {
		if onFailure != nil {
			onFailure(err)
		}
		return err
	}

	gb, err := units.ParseSize(quotaSize)
	if err != nil {
		return fail(err)
	}

	if err := j.manager.Reserve(ctx, gb); err != nil {
		return fail(err)
	}
	j.res = models.Reservation{DiskID: j.diskID, QuotaGB: gb}
	j.reserved = true
	j.record(ctx, models.ActionReserve, gb)

	// Baseline usage sample, so the first monitor tick has something to
	// compare against in the logs.
	if usageGB, err := disk.Usage(ctx, j.workDir); err == nil {
		j.res.DiskUsageGB = usageGB
		log.Info().Str("disk_id", j.diskID).Str("usage", units.FormatGB(usageGB)).
			Str("quota", units.FormatGB(gb)).Msg("Initial disk usage")
	} else {
		log.Warn().Err(err).Msg("Initial usage probe failed")
	}

	// Duplicate lines left behind by crashed jobs are cleaned up on the
	// way in, not just on the way out.
	if err := j.led.WithExclusive(ctx, func() error {
		_, err := j.led.Prune()
		return err
	}); err != nil {
		log.Warn().Err(err).Msg("Ledger prune failed on start")
	}
	return nil
}

// Execute spawns argv in its own process group and runs the usage
// monitor against it, blocking until the command exits or is killed.
// pollInterval of zero falls back to the configured interval.
func (j *Job) Execute(ctx context.Context, argv []string, pollInterval time.Duration) (monitor.Outcome, error) {
	if !j.reserved {
		return 0, errNotReserved
	}
	if len(argv) == 0 {
		return 0, errors.New("no command given")
	}

	handle, err := startCommand(argv)
	if err != nil {
		return 0, fmt.Errorf("starting command: %w", err)
	}
	j.handle = handle

	if pollInterval <= 0 {
		pollInterval = j.cfg.Monitor.PollInterval
	}
	mon := &monitor.Monitor{
		QuotaGB:      j.res.QuotaGB,
		PollInterval: pollInterval,
		MaxRuntime:   j.cfg.Monitor.MaxRuntime,
		Usage: func(ctx context.Context) (float64, error) {
			return disk.Usage(ctx, j.workDir)
		},
		Handle: handle,
		UsageSample: func(gb float64) {
			j.res.DiskUsageGB = gb
		},
	}

	var outcome monitor.Outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := mon.Run(gctx)
		outcome = o
		return err
	})
	g.Go(func() error {
		// Unblock on cancellation too: a signalled run leaves the child
		// alive for the caller's Kill.
		select {
		case <-handle.Done():
		case <-gctx.Done():
		}
		return nil
	})
	err = g.Wait()

	switch outcome {
	case monitor.OutcomeQuotaViolated:
		j.record(ctx, models.ActionViolation, j.res.QuotaGB)
	case monitor.OutcomeExpired:
		j.record(ctx, models.ActionExpired, 0)
	case monitor.OutcomeProbeFailed:
		j.record(ctx, models.ActionKill, 0)
	}
	return outcome, err
}

// ExitErr returns the spawned command's wait error, nil when it exited
// cleanly or has not run.
func (j *Job) ExitErr() error {
	if j.handle == nil {
		return nil
	}
	return j.handle.ExitErr()
}

// End releases this job's reservation. Best-effort: the job is over
// either way, and a leaked reservation is reclaimed by the next
// reconciliation pass. Safe to call more than once.
func (j *Job) End(ctx context.Context) error {
	defer j.closeHistory()

	if !j.reserved {
		return nil
	}
	j.reserved = false

	if err := j.manager.Release(ctx, j.res.QuotaGB); err != nil {
		return err
	}
	j.record(ctx, models.ActionRelease, j.res.QuotaGB)
	return nil
}

// Kill releases the reservation and then forcibly terminates the
// command's whole process group. Used by the signal handler.
func (j *Job) Kill(ctx context.Context) error {
	if err := j.End(ctx); err != nil {
		log.Error().Err(err).Msg("Release failed during kill")
	}
	if j.handle == nil {
		return nil
	}
	log.Warn().Str("disk_id", j.diskID).Msg("Killing job process group")
	return j.handle.Kill()
}

// record appends an event to the history journal. Journaling is
// best-effort and never interferes with the job itself.
func (j *Job) record(ctx context.Context, action string, amountGB float64) {
	if j.hist == nil {
		return
	}
	err := j.hist.Record(ctx, models.Event{
		RunID:    j.runID,
		JobID:    j.jobID,
		DiskID:   j.diskID,
		Action:   action,
		AmountGB: amountGB,
	})
	if err != nil {
		log.Warn().Err(err).Str("action", action).Msg("History record failed")
	}
}

func (j *Job) closeHistory() {
	if j.hist == nil {
		return
	}
	if err := j.hist.Close(); err != nil {
		log.Warn().Err(err).Msg("History close failed")
	}
	j.hist = nil
}

// openHistory opens the configured event journal, returning nil when
// journaling is disabled or the store cannot be opened.
func openHistory(cfg *config.Config) *history.Store {
	if !cfg.History.Enabled || cfg.History.Path == "" {
		return nil
	}
	path := os.ExpandEnv(cfg.History.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("History directory not created")
		return nil
	}
	store, err := history.NewStore(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("History journal disabled")
		return nil
	}
	return store
}
