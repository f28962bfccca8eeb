package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quadica/batchplan/pkg/domain/entities"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no path failed: %v", err)
	}
	if cfg.Priority.AlmostDueDays != 2 {
		t.Errorf("Expected almost-due window of 2 days, got %d", cfg.Priority.AlmostDueDays)
	}
	if cfg.Composer.DefaultArraySize != 8 || cfg.Composer.DefaultCapacityHint != 200 {
		t.Errorf("Unexpected composer defaults: %+v", cfg.Composer)
	}
	if cfg.Stall.Threshold.Std() != 48*time.Hour {
		t.Errorf("Expected 48h stall threshold, got %v", cfg.Stall.Threshold.Std())
	}
	tiers := cfg.Composer.NoTrim()
	if len(tiers) != 2 || tiers[0] != entities.TierHigh || tiers[1] != entities.TierCritical {
		t.Errorf("Expected High and Critical as default no-trim tiers, got %v", tiers)
	}
}

func TestLoad_NoTrimTiersOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batchplan.yaml")
	content := "composer:\n  no_trim_tiers: [critical]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tiers := cfg.Composer.NoTrim()
	if len(tiers) != 1 || tiers[0] != entities.TierCritical {
		t.Errorf("Expected only Critical exempt from trimming, got %v", tiers)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file failed: %v", err)
	}
	if cfg.Composer.CommitRetries != 2 {
		t.Errorf("Expected default commit retries 2, got %d", cfg.Composer.CommitRetries)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batchplan.yaml")
	content := `
priority:
  almost_due_days: 5
composer:
  default_array_size: 12
stall:
  threshold: 72h
  reminder_interval: 12h
  sweep_interval: 5m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Priority.AlmostDueDays != 5 {
		t.Errorf("Expected almost-due window of 5 days, got %d", cfg.Priority.AlmostDueDays)
	}
	if cfg.Composer.DefaultArraySize != 12 {
		t.Errorf("Expected array size 12, got %d", cfg.Composer.DefaultArraySize)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Composer.DefaultCapacityHint != 200 {
		t.Errorf("Expected capacity hint default 200, got %d", cfg.Composer.DefaultCapacityHint)
	}
	if cfg.Stall.Threshold.Std() != 72*time.Hour {
		t.Errorf("Expected 72h threshold, got %v", cfg.Stall.Threshold.Std())
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"bad duration", "stall:\n  threshold: soon\n"},
		{"zero array size", "composer:\n  default_array_size: 0\n"},
		{"negative window", "priority:\n  almost_due_days: -1\n"},
		{"unknown tier", "composer:\n  no_trim_tiers: [sometime]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "batchplan.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected load to fail, but it succeeded")
			}
		})
	}
}
