package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scratchguard/pkg/job"
	"scratchguard/pkg/log"
	"scratchguard/pkg/monitor"
)

var (
	runQuota        string
	runPollInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run --quota <size> -- <command> [args...]",
	Short: "Run a command under a quota reservation",
	Long: `Reserves the requested quota, runs the command under the usage
monitor, and releases the reservation when the command exits. The
command is killed if its disk consumption exceeds the reservation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		workDir, err := os.Getwd()
		if err != nil {
			return err
		}

		j, err := job.New(cfg, workDir)
		if err != nil {
			return err
		}

		err = j.Start(ctx, runQuota, func(err error) {
			log.Error().Err(err).Msg("Could not reserve quota; refusing to run")
		})
		if err != nil {
			return err
		}

		outcome, execErr := j.Execute(ctx, args, runPollInterval)

		if ctx.Err() != nil {
			// Interrupted: release and take the whole process group down.
			if killErr := j.Kill(context.Background()); killErr != nil {
				log.Error().Err(killErr).Msg("Kill failed")
			}
			return ctx.Err()
		}

		if endErr := j.End(context.Background()); endErr != nil {
			log.Error().Err(endErr).Msg("Release failed")
		}
		if execErr != nil && !errors.Is(execErr, context.Canceled) {
			return execErr
		}

		switch outcome {
		case monitor.OutcomeCompleted:
			return j.ExitErr()
		case monitor.OutcomeQuotaViolated:
			return fmt.Errorf("killed: disk usage exceeded the %s reservation", runQuota)
		case monitor.OutcomeExpired:
			return errors.New("killed: runtime ceiling reached")
		case monitor.OutcomeProbeFailed:
			return errors.New("killed: disk usage could not be verified")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runQuota, "quota", "", "quota to reserve, e.g. 100G or 2T")
	runCmd.Flags().DurationVar(&runPollInterval, "poll-interval", 0, "usage poll interval (default from config)")
	_ = runCmd.MarkFlagRequired("quota")
	rootCmd.AddCommand(runCmd)
}
