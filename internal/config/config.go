// Package config handles configuration loading and validation for rejoin.
//
// Configuration is an explicit object handed to the composition root —
// never a process-wide singleton. Load reads an optional YAML file and
// fills in defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Log levels accepted by Validate.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config holds the runtime configuration.
type Config struct {
	// DataDir is where the checkpoint database lives.
	DataDir string `yaml:"data_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Checkpoint enables persisting the reconciled snapshot at every
	// join point.
	Checkpoint bool `yaml:"checkpoint"`
	// HistoryBudget bounds the conversation log to roughly this many
	// characters between joins. Zero disables trimming.
	HistoryBudget int `yaml:"history_budget"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".rejoin"),
		LogLevel:      "info",
		Checkpoint:    true,
		HistoryBudget: 15000,
	}
}

// Load reads configuration from a YAML file, layered over Default. A
// missing file is not an error — defaults are returned. An empty path
// skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for contract violations.
func (c Config) Validate() error {
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q: must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.HistoryBudget < 0 {
		return fmt.Errorf("invalid history_budget %d: must be >= 0", c.HistoryBudget)
	}
	if c.Checkpoint && c.DataDir == "" {
		return fmt.Errorf("data_dir is required when checkpointing is enabled")
	}
	return nil
}
