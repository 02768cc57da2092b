// Package config loads the tidymac configuration and owns the state
// directory layout. State lives under $HOME/.tidymac unless overridden
// by TIDYMAC_HOME; log files follow the XDG state convention.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Defaults applied when the config file is absent or partial.
const (
	DefaultProfile       = "quick"
	DefaultRetentionDays = 7
	DefaultStaleDays     = 30
	DefaultLargeFileMB   = 500
	DefaultMinItemSize   = "1M"
	DefaultWalkBudgetSec = 30
	DefaultHashBudgetSec = 60
)

// knownKeys is the enumerated config surface. Anything else in the file
// is warned about and ignored rather than silently stored.
var knownKeys = map[string]struct{}{
	"default_profile":         {},
	"retention_days":          {},
	"stale_days":              {},
	"large_file_threshold_mb": {},
	"min_item_size":           {},
	"walk_budget_secs":        {},
	"hash_budget_secs":        {},
	"verify":                  {},
	"exclude":                 {},
	"logging.level":           {},
	"logging.path":            {},
	"logging.components":      {},
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// Config is the engine configuration.
type Config struct {
	DefaultProfile       string        `mapstructure:"default_profile"`
	RetentionDays        int           `mapstructure:"retention_days"`
	StaleDays            int           `mapstructure:"stale_days"`
	LargeFileThresholdMB int64         `mapstructure:"large_file_threshold_mb"`
	MinItemSize          string        `mapstructure:"min_item_size"`
	WalkBudgetSecs       int           `mapstructure:"walk_budget_secs"`
	HashBudgetSecs       int           `mapstructure:"hash_budget_secs"`
	Verify               bool          `mapstructure:"verify"`
	Exclude              []string      `mapstructure:"exclude"`
	Logging              LoggingConfig `mapstructure:"logging"`

	// Warnings lists unknown keys found in the config file.
	Warnings []string `mapstructure:"-"`
}

// Load reads <state-dir>/config.toml, applying defaults and TIDYMAC_*
// environment overrides. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(StateDir())

	v.SetEnvPrefix("TIDYMAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_profile", DefaultProfile)
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("stale_days", DefaultStaleDays)
	v.SetDefault("large_file_threshold_mb", DefaultLargeFileMB)
	v.SetDefault("min_item_size", DefaultMinItemSize)
	v.SetDefault("walk_budget_secs", DefaultWalkBudgetSec)
	v.SetDefault("hash_budget_secs", DefaultHashBudgetSec)
	v.SetDefault("verify", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.components", map[string]string{})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Warnings = unknownKeys(v.AllKeys())
	return &cfg, nil
}

// unknownKeys returns warnings for keys outside the enumerated surface.
func unknownKeys(keys []string) []string {
	var warnings []string
	for _, key := range keys {
		if _, ok := knownKeys[key]; ok {
			continue
		}
		// Map-typed keys surface their children in AllKeys.
		if strings.HasPrefix(key, "logging.components.") {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("unknown config key %q ignored", key))
	}
	sort.Strings(warnings)
	return warnings
}

// StateDir returns the tidymac state directory: $TIDYMAC_HOME when set,
// otherwise $HOME/.tidymac.
func StateDir() string {
	if dir := os.Getenv("TIDYMAC_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".tidymac")
	}
	return filepath.Join(home, ".tidymac")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(StateDir(), "config.toml")
}

// StagingDir returns the root directory holding staged session trees.
func StagingDir() string {
	return filepath.Join(StateDir(), "staging")
}

// SessionsDir returns the directory holding session manifests.
func SessionsDir() string {
	return filepath.Join(StateDir(), "sessions")
}

// ProfilesDir returns the directory holding user-defined profiles.
func ProfilesDir() string {
	return filepath.Join(StateDir(), "profiles")
}

// LockPath returns the session lockfile path.
func LockPath() string {
	return filepath.Join(StateDir(), "tidymac.lock")
}

// DefaultLogPath returns the default log file path under XDG state.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "tidymac", "tidymac.log")
}

// EnsureDirs creates the state directory tree if it does not exist.
func EnsureDirs() error {
	for _, dir := range []string{StateDir(), StagingDir(), SessionsDir(), ProfilesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteDefault writes a commented default config file if none exists.
func WriteDefault() error {
	if err := EnsureDirs(); err != nil {
		return err
	}

	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# TidyMac Cleanup Engine Configuration

# Profile used when none is specified
default_profile = %q

# Days staged sessions are kept before purge eligibility
retention_days = %d

# Not read by scans: each profile carries its own stale_days
stale_days = %d

# Not read by scans: each profile carries its own large_file_threshold_mb
large_file_threshold_mb = %d

# Inventory items smaller than this are dropped from output
min_item_size = %q

# Verify staged copies with SHA-256 on cross-device moves
verify = false

# Paths to exclude from scanning
exclude = []

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log file path (empty means $XDG_STATE_HOME/tidymac/tidymac.log)
path = ""
`, DefaultProfile, DefaultRetentionDays, DefaultStaleDays, DefaultLargeFileMB, DefaultMinItemSize)

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
