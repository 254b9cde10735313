package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scratchguard/pkg/job"
	"scratchguard/pkg/ledger"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove duplicate ledger lines",
	Long: `Rewrites the ledger keeping only the first line per disk identity.
Duplicates appear when jobs crash between appending and re-scanning;
pruning is also run automatically around every job.`,
	Args: cobra.NoArgs,
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
		var removed int
		err = led.WithExclusive(cmd.Context(), func() error {
			removed, err = led.Prune()
			return err
		})
		if err != nil {
			return err
		}

		fmt.Printf("pruned %d duplicate line(s) from %s\n", removed, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
