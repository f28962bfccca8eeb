// Package config loads scheduler tuning from an optional YAML file.
// Every knob has a default that matches how the production floor actually
// runs, so a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quadica/batchplan/pkg/domain/entities"
)

// Duration wraps time.Duration with YAML parsing of values like "48h"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PriorityConfig tunes the priority engine
type PriorityConfig struct {
	// AlmostDueDays is the window before the promise date that earns the
	// almost-due boost.
	AlmostDueDays int `yaml:"almost_due_days"`
}

// ComposerConfig tunes batch composition and commit
type ComposerConfig struct {
	DefaultArraySize    int64 `yaml:"default_array_size"`
	DefaultCapacityHint int64 `yaml:"default_capacity_hint"`
	// CommitRetries bounds how many times a commit is re-attempted after a
	// concurrent stock change before failing to the caller.
	CommitRetries int `yaml:"commit_retries"`
	// NoTrimTiers names the priority tiers exempt from capacity capping and
	// array trimming.
	NoTrimTiers []string `yaml:"no_trim_tiers"`
}

// NoTrim resolves the configured tier names. Unknown names were already
// rejected by validation.
func (c ComposerConfig) NoTrim() []entities.PriorityTier {
	tiers := make([]entities.PriorityTier, 0, len(c.NoTrimTiers))
	for _, name := range c.NoTrimTiers {
		tier, err := entities.ParseTier(name)
		if err != nil {
			continue
		}
		tiers = append(tiers, tier)
	}
	return tiers
}

// StallConfig tunes the stall monitor sweep
type StallConfig struct {
	Threshold        Duration `yaml:"threshold"`
	ReminderInterval Duration `yaml:"reminder_interval"`
	SweepInterval    Duration `yaml:"sweep_interval"`
}

// Config is the full scheduler configuration
type Config struct {
	Priority PriorityConfig `yaml:"priority"`
	Composer ComposerConfig `yaml:"composer"`
	Stall    StallConfig    `yaml:"stall"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Priority: PriorityConfig{
			AlmostDueDays: 2,
		},
		Composer: ComposerConfig{
			DefaultArraySize:    8,
			DefaultCapacityHint: 200,
			CommitRetries:       2,
			NoTrimTiers:         []string{"high", "critical"},
		},
		Stall: StallConfig{
			Threshold:        Duration(48 * time.Hour),
			ReminderInterval: Duration(24 * time.Hour),
			SweepInterval:    Duration(15 * time.Minute),
		},
	}
}

// Load reads the config file at path, layering it over the defaults. A
// missing file returns the defaults unchanged; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Priority.AlmostDueDays < 0 {
		return fmt.Errorf("priority.almost_due_days cannot be negative")
	}
	if c.Composer.DefaultArraySize < 1 {
		return fmt.Errorf("composer.default_array_size must be at least 1")
	}
	if c.Composer.DefaultCapacityHint < 1 {
		return fmt.Errorf("composer.default_capacity_hint must be at least 1")
	}
	if c.Composer.CommitRetries < 0 {
		return fmt.Errorf("composer.commit_retries cannot be negative")
	}
	for _, name := range c.Composer.NoTrimTiers {
		if _, err := entities.ParseTier(name); err != nil {
			return fmt.Errorf("composer.no_trim_tiers: %w", err)
		}
	}
	if c.Stall.Threshold <= 0 || c.Stall.ReminderInterval <= 0 || c.Stall.SweepInterval <= 0 {
		return fmt.Errorf("stall durations must be positive")
	}
	return nil
}
