package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a quorum run.
// Values are populated from quorum.yaml, QUORUM_* env vars, and CLI flags.
type Config struct {
	Provider    string   `mapstructure:"provider"`
	Model       string   `mapstructure:"model"`
	Endpoint    string   `mapstructure:"endpoint"`
	Concurrency int      `mapstructure:"concurrency"`
	Profiles    []string `mapstructure:"profiles"`
	ProfileDir  string   `mapstructure:"profile_dir"`
	MinSeverity string   `mapstructure:"min_severity"`
	MaxFindings int      `mapstructure:"max_findings"`
	Output      string   `mapstructure:"output"`
	Redact      bool     `mapstructure:"redact"`

	Unit   UnitConfig   `mapstructure:"unit"`
	Retry  RetryConfig  `mapstructure:"retry"`
	Merge  MergeConfig  `mapstructure:"merge"`
	Filter FilterConfig `mapstructure:"filter"`
	Log    LogConfig    `mapstructure:"log"`
	GitHub GitHubConfig `mapstructure:"github"`
}

// UnitConfig bounds the serialized size of one review unit.
type UnitConfig struct {
	MaxBytes int `mapstructure:"max_bytes"`
	MaxLines int `mapstructure:"max_lines"`
}

// RetryConfig shapes the backoff applied to transient provider failures.
type RetryConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts"`
	BaseDelayMs int     `mapstructure:"base_delay_ms"`
	Multiplier  float64 `mapstructure:"multiplier"`
}

// MergeConfig tunes duplicate-finding consolidation.
type MergeConfig struct {
	LineWindow int     `mapstructure:"line_window"`
	Similarity float64 `mapstructure:"similarity"`
}

// FilterConfig narrows which changed files are reviewed. Empty lists fall
// back to the built-in skip policy.
type FilterConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	BlockedExtensions []string `mapstructure:"blocked_extensions"`
	BlockedFiles      []string `mapstructure:"blocked_files"`
	BlockedDirs       []string `mapstructure:"blocked_dirs"`
	MaxFileBytes      int      `mapstructure:"max_file_bytes"`
}

// LogConfig controls diagnostic log output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GitHubConfig holds hosting credentials. An empty token falls back to the
// GITHUB_TOKEN environment variable.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

// SetDefaults registers the built-in baseline on the shared viper instance.
// Call before ReadInConfig so file and env values override it.
func SetDefaults() {
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("model", "")
	viper.SetDefault("endpoint", "")
	viper.SetDefault("concurrency", 4)
	viper.SetDefault("profiles", []string{})
	viper.SetDefault("profile_dir", "")
	viper.SetDefault("min_severity", "medium")
	viper.SetDefault("max_findings", 50)
	viper.SetDefault("output", "text")
	viper.SetDefault("redact", true)

	viper.SetDefault("unit.max_bytes", 30000)
	viper.SetDefault("unit.max_lines", 400)

	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.base_delay_ms", 1000)
	viper.SetDefault("retry.multiplier", 2.0)

	viper.SetDefault("merge.line_window", 2)
	viper.SetDefault("merge.similarity", 0.5)

	viper.SetDefault("filter.allowed_extensions", []string{})
	viper.SetDefault("filter.blocked_extensions", []string{})
	viper.SetDefault("filter.blocked_files", []string{})
	viper.SetDefault("filter.blocked_dirs", []string{})
	viper.SetDefault("filter.max_file_bytes", 0)

	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("github.token", "")
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	SetDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var outputFormats = []string{"text", "json", "markdown", "sarif"}

var severityLevels = []string{"none", "info", "low", "medium", "high", "critical"}

// Validate rejects values that would fail deep inside a run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Provider) == "" {
		return fmt.Errorf("provider must not be empty")
	}
	if !contains(outputFormats, c.Output) {
		return fmt.Errorf("unknown output format %q (expected one of %s)", c.Output, strings.Join(outputFormats, ", "))
	}
	if !contains(severityLevels, c.MinSeverity) {
		return fmt.Errorf("unknown min_severity %q (expected one of %s)", c.MinSeverity, strings.Join(severityLevels, ", "))
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1, got %g", c.Retry.Multiplier)
	}
	if c.Merge.Similarity <= 0 || c.Merge.Similarity > 1 {
		return fmt.Errorf("merge.similarity must be in (0, 1], got %g", c.Merge.Similarity)
	}
	if l := c.Log.Level; l != "" {
		switch l {
		case "trace", "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("unknown log level %q", l)
		}
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("unknown log format %q (expected text or json)", f)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Keys returns every known configuration key, sorted. Used by the config
// subcommands to validate key arguments and render listings.
func Keys() []string {
	SetDefaults()
	keys := viper.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key names a configuration value.
func IsKnownKey(key string) bool {
	return contains(Keys(), key)
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "quorum"), nil
}

// Path returns the config file written by Write: the file viper loaded, or
// the per-user default when no file was found.
func Path() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "quorum.yaml"), nil
}

// Write sets key to value and persists the full effective configuration to
// the config file, creating it when missing.
func Write(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	viper.Set(key, value)

	if _, err := Load(); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
