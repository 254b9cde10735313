package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scratchguard/pkg/job"
	"scratchguard/pkg/ledger"
	"scratchguard/pkg/units"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the quota ledger",
	Args:  cobra.NoArgs,
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
		var entries []ledger.Entry
		err = led.WithExclusive(cmd.Context(), func() error {
			entries, err = led.Entries()
			return err
		})
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("ledger %s: no reservations\n", path)
			return nil
		}

		fmt.Printf("ledger %s:\n", path)
		fmt.Printf("%-20s %12s %12s\n", "IDENTITY", "CAPACITY", "RESERVED")
		for _, e := range entries {
			fmt.Printf("%-20s %12s %12s\n",
				e.DiskID, units.FormatGB(e.CapacityGB), units.FormatGB(e.QuotaGB))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
