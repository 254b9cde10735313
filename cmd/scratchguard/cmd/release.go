package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scratchguard/pkg/job"
	"scratchguard/pkg/ledger"
	"scratchguard/pkg/reservation"
)

var releaseCmd = &cobra.Command{
	Use:   "release <identity>",
	Short: "Reset an identity's reserved quota to zero",
	Long: `Manually zeroes the reserved quota of a disk identity, for cleaning
up after crashed jobs when no scheduler query is available.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}
		path, err := job.LedgerPath(cfg, workDir)
		if err != nil {
			return err
		}

		led := ledger.New(path, cfg.Ledger.LockTimeout)
		if err := reservation.Zero(cmd.Context(), led, args[0]); err != nil {
			return err
		}
		fmt.Printf("released %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(releaseCmd)
}
