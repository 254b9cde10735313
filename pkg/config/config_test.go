package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests configuration loading
type ConfigTestSuite struct {
	suite.Suite
}

// TestDefaults tests that defaults apply without any config file
func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)

	s.Equal(100*time.Second, cfg.Ledger.LockTimeout)
	s.Equal(60*time.Second, cfg.Monitor.PollInterval)
	s.Equal(30*24*time.Hour, cfg.Monitor.MaxRuntime)
	s.Equal("/scratch", cfg.Mounts.Scratch)
	s.Equal("/vol/blue", cfg.Mounts.VolumeBlue)
	s.Equal("/vol/red", cfg.Mounts.VolumeRed)
	s.Equal("/home", cfg.Mounts.Home)
	s.True(cfg.History.Enabled)
	s.False(cfg.Logging.Debug)
}

// TestLoadFromFile tests an explicit YAML config file
func (s *ConfigTestSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "scratchguard.yaml")
	content := `
ledger:
  path: /scratch/.quota_ledger
  lock_timeout: 10s
monitor:
  poll_interval: 5s
scheduler:
  endpoint: http://slurmctl:6820
  account: batch
logging:
  debug: true
`
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal("/scratch/.quota_ledger", cfg.Ledger.Path)
	s.Equal(10*time.Second, cfg.Ledger.LockTimeout)
	s.Equal(5*time.Second, cfg.Monitor.PollInterval)
	s.Equal("http://slurmctl:6820", cfg.Scheduler.Endpoint)
	s.Equal("batch", cfg.Scheduler.Account)
	s.True(cfg.Logging.Debug)

	// Unset keys keep their defaults.
	s.Equal(30*24*time.Hour, cfg.Monitor.MaxRuntime)
	s.Equal("/scratch", cfg.Mounts.Scratch)
}

// TestLoadMissingExplicitFile tests that a named config file must exist
func (s *ConfigTestSuite) TestLoadMissingExplicitFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "nope.yaml"))
	s.Error(err)
}

// TestEnvOverride tests SCRATCHGUARD_* environment overrides
func (s *ConfigTestSuite) TestEnvOverride() {
	s.T().Setenv("SCRATCHGUARD_SCHEDULER_ACCOUNT", "hpcuser")
	s.T().Setenv("SCRATCHGUARD_MONITOR_POLL_INTERVAL", "15s")

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal("hpcuser", cfg.Scheduler.Account)
	s.Equal(15*time.Second, cfg.Monitor.PollInterval)
}

// TestConfigSuite runs the config test suite
func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
