package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Provider", cfg.Provider, "anthropic"},
		{"Concurrency", cfg.Concurrency, 4},
		{"MinSeverity", cfg.MinSeverity, "medium"},
		{"MaxFindings", cfg.MaxFindings, 50},
		{"Output", cfg.Output, "text"},
		{"Redact", cfg.Redact, true},
		{"Unit.MaxBytes", cfg.Unit.MaxBytes, 30000},
		{"Unit.MaxLines", cfg.Unit.MaxLines, 400},
		{"Retry.MaxAttempts", cfg.Retry.MaxAttempts, 3},
		{"Retry.BaseDelayMs", cfg.Retry.BaseDelayMs, 1000},
		{"Retry.Multiplier", cfg.Retry.Multiplier, 2.0},
		{"Merge.LineWindow", cfg.Merge.LineWindow, 2},
		{"Merge.Similarity", cfg.Merge.Similarity, 0.5},
		{"Log.Level", cfg.Log.Level, "warn"},
		{"Log.Format", cfg.Log.Format, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetViper()

	// Mirror the CLI's env wiring.
	viper.SetEnvPrefix("QUORUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	t.Setenv("QUORUM_PROVIDER", "ollama")
	t.Setenv("QUORUM_MODEL", "llama3")
	t.Setenv("QUORUM_CONCURRENCY", "8")
	t.Setenv("QUORUM_MIN_SEVERITY", "high")
	t.Setenv("QUORUM_UNIT_MAX_BYTES", "12345")
	t.Setenv("QUORUM_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.Provider)
	}
	if cfg.Model != "llama3" {
		t.Errorf("Model = %q, want llama3", cfg.Model)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.MinSeverity != "high" {
		t.Errorf("MinSeverity = %q, want high", cfg.MinSeverity)
	}
	if cfg.Unit.MaxBytes != 12345 {
		t.Errorf("Unit.MaxBytes = %d, want 12345", cfg.Unit.MaxBytes)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper()

	dir := t.TempDir()
	path := filepath.Join(dir, "quorum.yaml")
	content := `provider: openai
model: gpt-4o
concurrency: 2
profiles:
  - general
  - security
merge:
  line_window: 5
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	if len(cfg.Profiles) != 2 || cfg.Profiles[0] != "general" || cfg.Profiles[1] != "security" {
		t.Errorf("Profiles = %v, want [general security]", cfg.Profiles)
	}
	if cfg.Merge.LineWindow != 5 {
		t.Errorf("Merge.LineWindow = %d, want 5", cfg.Merge.LineWindow)
	}
	// Unset nested keys keep their defaults.
	if cfg.Merge.Similarity != 0.5 {
		t.Errorf("Merge.Similarity = %g, want default 0.5", cfg.Merge.Similarity)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		resetViper()
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = " " }},
		{"bad output", func(c *Config) { c.Output = "xml" }},
		{"bad severity", func(c *Config) { c.MinSeverity = "catastrophic" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"shrinking backoff", func(c *Config) { c.Retry.Multiplier = 0.5 }},
		{"similarity too high", func(c *Config) { c.Merge.Similarity = 1.5 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}

func TestKeys(t *testing.T) {
	resetViper()

	for _, key := range []string{"provider", "unit.max_bytes", "retry.multiplier", "merge.line_window", "log.level"} {
		if !IsKnownKey(key) {
			t.Errorf("IsKnownKey(%q) = false, want true", key)
		}
	}
	if IsKnownKey("no.such.key") {
		t.Error("IsKnownKey(no.such.key) = true, want false")
	}
}

func TestWrite_RejectsUnknownKey(t *testing.T) {
	resetViper()

	if err := Write("no.such.key", "1"); err == nil {
		t.Error("Write with unknown key should fail")
	}
}

func TestWrite_PersistsValue(t *testing.T) {
	resetViper()

	dir := t.TempDir()
	path := filepath.Join(dir, "quorum.yaml")
	if err := os.WriteFile(path, []byte("provider: openai\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	if err := Write("model", "gpt-4o-mini"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "gpt-4o-mini") {
		t.Errorf("config file should contain the written value, got:\n%s", data)
	}
}
