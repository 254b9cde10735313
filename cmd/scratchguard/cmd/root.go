// Package cmd implements the scratchguard command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"scratchguard/pkg/config"
	"scratchguard/pkg/log"
)

var (
	cfgFile string
	debug   bool

	// cfg is loaded once by the root PersistentPreRunE and shared by all
	// subcommands.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "scratchguard",
	Short: "Cooperative disk-quota coordination for batch jobs",
	Long: `scratchguard coordinates a shared per-filesystem disk quota across
concurrently running batch jobs. Jobs reserve a slice of quota in a
shared ledger before starting, self-monitor their disk consumption,
and release the reservation on exit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if debug || cfg.Logging.Debug {
			log.SetDebugMode()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
