// Package config loads the scratchguard configuration from defaults, an
// optional YAML file and SCRATCHGUARD_* environment overrides.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete scratchguard configuration.
type Config struct {
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Mounts    MountsConfig    `mapstructure:"mounts"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// LedgerConfig locates the shared ledger and bounds lock waits.
type LedgerConfig struct {
	// Path of the ledger file. When empty, the ledger lives at
	// <mount point>/.scratchguard_ledger so every job sharing the mount
	// shares the ledger.
	Path string `mapstructure:"path"`
	// LockTimeout bounds the wait for the exclusive ledger lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// MonitorConfig controls the usage-monitor loop.
type MonitorConfig struct {
	// PollInterval between disk usage samples.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// MaxRuntime is the hard wall-clock ceiling for a monitored job.
	MaxRuntime time.Duration `mapstructure:"max_runtime"`
}

// SchedulerConfig selects how the live job list is queried.
type SchedulerConfig struct {
	// Endpoint of a slurmrestd-style REST API. When empty, squeue is
	// executed instead.
	Endpoint string `mapstructure:"endpoint"`
	// Account whose jobs count toward node occupancy.
	Account string `mapstructure:"account"`
}

// MountsConfig is the mount-point classification table.
type MountsConfig struct {
	Scratch    string `mapstructure:"scratch"`
	VolumeBlue string `mapstructure:"volume_blue"`
	VolumeRed  string `mapstructure:"volume_red"`
	Home       string `mapstructure:"home"`
}

// HistoryConfig controls the local event journal.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig controls diagnostics.
type LoggingConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Load reads the configuration. configFile may be empty, in which case
// only the standard locations are searched; a missing file is not an
// error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCRATCHGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("scratchguard")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/scratchguard")
		v.AddConfigPath("$HOME/.config/scratchguard")
	}

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist and parse; a missing file
		// in the standard locations just means defaults apply.
		if configFile != "" {
			return nil, err
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ledger.path", "")
	v.SetDefault("ledger.lock_timeout", 100*time.Second)
	v.SetDefault("monitor.poll_interval", 60*time.Second)
	v.SetDefault("monitor.max_runtime", 30*24*time.Hour)
	v.SetDefault("scheduler.endpoint", "")
	v.SetDefault("scheduler.account", "")
	v.SetDefault("mounts.scratch", "/scratch")
	v.SetDefault("mounts.volume_blue", "/vol/blue")
	v.SetDefault("mounts.volume_red", "/vol/red")
	v.SetDefault("mounts.home", "/home")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "$HOME/.local/state/scratchguard/history.db")
	v.SetDefault("logging.debug", false)
}
