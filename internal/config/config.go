// Package config handles configuration loading, validation, and
// hot-reloading for the slurmdbd toolkit.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Config holds the complete toolkit configuration.
type Config struct {
	// Paths locates the files the toolkit manages.
	Paths PathsConfig `toml:"paths" json:"paths" yaml:"paths"`

	// Service configures the managed systemd units.
	Service ServiceConfig `toml:"service" json:"service" yaml:"service"`

	// Slurm identifies the account that owns rendered files.
	Slurm SlurmConfig `toml:"slurm" json:"slurm" yaml:"slurm"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Watch configures drift detection on the rendered file.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// PathsConfig locates the managed files.
type PathsConfig struct {
	// ConfFile is the slurmdbd configuration file to manage.
	ConfFile string `toml:"conf_file" json:"conf_file" yaml:"conf_file"`

	// DefaultsFile is the environment defaults file sourced by the
	// service manager before starting slurmdbd.
	DefaultsFile string `toml:"defaults_file" json:"defaults_file" yaml:"defaults_file"`

	// JWTKeyFile is where the JWT signing key is installed.
	JWTKeyFile string `toml:"jwt_key_file" json:"jwt_key_file" yaml:"jwt_key_file"`

	// StateDB is the toolkit's own state database.
	StateDB string `toml:"state_db" json:"state_db" yaml:"state_db"`
}

// ServiceConfig configures the managed systemd units.
type ServiceConfig struct {
	// Unit is the slurmdbd systemd unit name.
	Unit string `toml:"unit" json:"unit" yaml:"unit"`

	// MungeUnit is the munge systemd unit name.
	MungeUnit string `toml:"munge_unit" json:"munge_unit" yaml:"munge_unit"`

	// RestartAttempts is how many times a restart is retried before
	// giving up.
	RestartAttempts int `toml:"restart_attempts" json:"restart_attempts" yaml:"restart_attempts"`

	// RestartBaseDelaySec is the delay before the first retry; each
	// further attempt waits one second longer.
	RestartBaseDelaySec int `toml:"restart_base_delay_sec" json:"restart_base_delay_sec" yaml:"restart_base_delay_sec"`
}

// SlurmConfig identifies the slurm system account.
type SlurmConfig struct {
	// User owns rendered configuration and key files.
	User string `toml:"user" json:"user" yaml:"user"`

	// Group is the owning group for rendered files.
	Group string `toml:"group" json:"group" yaml:"group"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: stdout, stderr, file, or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file location when Output includes file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// AuditPath is the audit trail location. Empty disables auditing.
	AuditPath string `toml:"audit_path" json:"audit_path" yaml:"audit_path"`
}

// WatchConfig configures drift detection.
type WatchConfig struct {
	// DebounceMs is how long the rendered file must be stable before a
	// change is reported.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// DefaultConfig returns the default toolkit configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			ConfFile:     "/etc/slurmdbd.conf",
			DefaultsFile: "/etc/default/slurmdbd",
			JWTKeyFile:   "/var/spool/slurmdbd/jwt_hs256.key",
			StateDB:      defaultStateDBPath(),
		},
		Service: ServiceConfig{
			Unit:                "slurmdbd.service",
			MungeUnit:           "munge.service",
			RestartAttempts:     5,
			RestartBaseDelaySec: 3,
		},
		Slurm: SlurmConfig{
			User:  "slurm",
			Group: "slurm",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

// ConfigPath returns the toolkit configuration file path. The
// SLURMDBDCTL_CONFIG environment variable overrides the default.
func ConfigPath() string {
	if v := os.Getenv("SLURMDBDCTL_CONFIG"); v != "" {
		return v
	}
	return "/etc/slurmdbdctl/config.toml"
}

// defaultStateDBPath returns the state database path: a system
// location when running as root, XDG state otherwise.
func defaultStateDBPath() string {
	if os.Geteuid() == 0 {
		return "/var/lib/slurmdbdctl/state.db"
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, _ := os.UserHomeDir()
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "slurmdbdctl", "state.db")
}

// ApplyEnvOverrides applies SLURMDBDCTL_* environment variables over a
// loaded configuration. Environment wins over the file so one-off
// invocations can retarget paths without editing it.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Path overrides
	if v := os.Getenv("SLURMDBDCTL_CONF_FILE"); v != "" {
		c.Paths.ConfFile = v
	}
	if v := os.Getenv("SLURMDBDCTL_DEFAULTS_FILE"); v != "" {
		c.Paths.DefaultsFile = v
	}
	if v := os.Getenv("SLURMDBDCTL_JWT_KEY_FILE"); v != "" {
		c.Paths.JWTKeyFile = v
	}
	if v := os.Getenv("SLURMDBDCTL_STATE_DB"); v != "" {
		c.Paths.StateDB = v
	}

	// Service overrides
	if v := os.Getenv("SLURMDBDCTL_SERVICE_UNIT"); v != "" {
		c.Service.Unit = v
	}
	if v := os.Getenv("SLURMDBDCTL_RESTART_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Service.RestartAttempts = n
		}
	}

	// Slurm account overrides
	if v := os.Getenv("SLURMDBDCTL_SLURM_USER"); v != "" {
		c.Slurm.User = v
	}
	if v := os.Getenv("SLURMDBDCTL_SLURM_GROUP"); v != "" {
		c.Slurm.Group = v
	}

	// Logging overrides
	if v := os.Getenv("SLURMDBDCTL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SLURMDBDCTL_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := Config{
		Paths:   c.Paths,
		Service: c.Service,
		Slurm:   c.Slurm,
		Logging: c.Logging,
		Watch:   c.Watch,
	}
	return &clone
}

// ConfFile returns the managed slurmdbd.conf path.
func (c *Config) ConfFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Paths.ConfFile
}

// DefaultsFile returns the environment defaults file path.
func (c *Config) DefaultsFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Paths.DefaultsFile
}

// JWTKeyFile returns the JWT signing key path.
func (c *Config) JWTKeyFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Paths.JWTKeyFile
}

// StateDB returns the state database path.
func (c *Config) StateDB() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Paths.StateDB
}
