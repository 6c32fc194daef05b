// Package config provides configuration management for tokensync.
// It supports YAML configuration files, environment variables, and sensible defaults.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klauern/tokensync/internal/util"
)

// Config represents the complete tokensync configuration.
type Config struct {
	// Sync configures conflict handling defaults
	Sync SyncConfig `yaml:"sync"`

	// Repository configures where the remote snapshot is read from
	Repository RepositoryConfig `yaml:"repository"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output"`

	// Backup configures backup behavior
	Backup BackupConfig `yaml:"backup"`

	// Logging configures structured log output
	Logging LoggingConfig `yaml:"logging"`
}

// SyncConfig holds conflict handling settings.
type SyncConfig struct {
	// AutoResolve applies suggested resolutions when apply is run without a
	// resolutions file
	AutoResolve bool `yaml:"auto_resolve"`
	// Interactive opens the conflict picker by default when a terminal is attached
	Interactive bool `yaml:"interactive"`
}

// RepositoryConfig holds the default remote snapshot location.
type RepositoryConfig struct {
	// Path is a local git clone or plain directory
	Path string `yaml:"path,omitempty"`
	// Ref is the git revision to read (branch, tag or hash)
	Ref string `yaml:"ref"`
	// SnapshotPath is the snapshot file inside the repository
	SnapshotPath string `yaml:"snapshot_path"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Format is the default report format (table, json, yaml, markdown)
	Format string `yaml:"format"`
	// Color controls color output (auto, always, never)
	Color string `yaml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Enabled enables a backup before the host document is overwritten
	Enabled bool `yaml:"enabled"`
	// Location is the backup directory path
	Location string `yaml:"location"`
	// MaxBackups is the maximum number of backups kept per document
	MaxBackups int `yaml:"max_backups"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// JSON switches log output from text to JSON
	JSON bool `yaml:"json"`
	// Level is the minimum level (debug, info, warn, error)
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			AutoResolve: false,
			Interactive: false,
		},
		Repository: RepositoryConfig{
			Ref:          "HEAD",
			SnapshotPath: "tokens/snapshot.json",
		},
		Output: OutputConfig{
			Format:  "table",
			Color:   "auto",
			Verbose: false,
		},
		Backup: BackupConfig{
			Enabled:    true,
			Location:   util.TokensyncBackupsPath(),
			MaxBackups: 10,
		},
		Logging: LoggingConfig{
			JSON:  false,
			Level: "warn",
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.TokensyncConfigPath(), configFileName)
}

// Load loads the configuration from file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg, err := LoadFromPath(FilePath())
	if err != nil {
		if os.IsNotExist(err) {
			cfg = Default()
			cfg.applyEnvironment()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern TOKENSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Sync settings
	if v := os.Getenv("TOKENSYNC_SYNC_AUTO_RESOLVE"); v != "" {
		c.Sync.AutoResolve = parseBool(v)
	}
	if v := os.Getenv("TOKENSYNC_SYNC_INTERACTIVE"); v != "" {
		c.Sync.Interactive = parseBool(v)
	}

	// Repository settings
	if v := os.Getenv("TOKENSYNC_REPOSITORY_PATH"); v != "" {
		c.Repository.Path = v
	}
	if v := os.Getenv("TOKENSYNC_REPOSITORY_REF"); v != "" {
		c.Repository.Ref = v
	}
	if v := os.Getenv("TOKENSYNC_REPOSITORY_SNAPSHOT_PATH"); v != "" {
		c.Repository.SnapshotPath = v
	}

	// Output settings
	if v := os.Getenv("TOKENSYNC_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("TOKENSYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("TOKENSYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}

	// Backup settings
	if v := os.Getenv("TOKENSYNC_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = parseBool(v)
	}
	if v := os.Getenv("TOKENSYNC_BACKUP_LOCATION"); v != "" {
		c.Backup.Location = v
	}
	if v := os.Getenv("TOKENSYNC_BACKUP_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Backup.MaxBackups = n
		}
	}

	// Logging settings
	if v := os.Getenv("TOKENSYNC_LOGGING_JSON"); v != "" {
		c.Logging.JSON = parseBool(v)
	}
	if v := os.Getenv("TOKENSYNC_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// RepositoryPath returns the configured repository path, expanded against
// baseDir. Empty if none is configured.
func (c *Config) RepositoryPath(baseDir string) string {
	return util.ExpandPath(c.Repository.Path, baseDir)
}

// BackupLocation returns the expanded backup directory.
func (c *Config) BackupLocation() string {
	if c.Backup.Location == "" {
		return util.TokensyncBackupsPath()
	}
	return util.ExpandPath(c.Backup.Location, "")
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
