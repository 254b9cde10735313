package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scratchguard/pkg/history"
	"scratchguard/pkg/units"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent quota events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.History.Enabled || cfg.History.Path == "" {
			return fmt.Errorf("history journal is disabled")
		}

		store, err := history.NewStore(os.ExpandEnv(cfg.History.Path))
		if err != nil {
			return err
		}
		defer store.Close()

		events, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("no recorded events")
			return nil
		}

		for _, e := range events {
			fmt.Printf("%s  %-10s %-12s %10s  job=%s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Action, e.DiskID, units.FormatGB(e.AmountGB), e.JobID)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of events to show")
	rootCmd.AddCommand(historyCmd)
}
