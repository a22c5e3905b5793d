package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Economy.EnableUserLimit {
		t.Error("Expected user limit enabled by default")
	}
	if cfg.Economy.EnableGroupLimit || cfg.Economy.EnableCheckin {
		t.Error("Expected group limit and check-in disabled by default")
	}
	if cfg.Economy.CheckinFixedReward != 3 {
		t.Errorf("Default fixed reward = %d, want 3", cfg.Economy.CheckinFixedReward)
	}
	if cfg.API.Mode != "generic" {
		t.Errorf("Default API mode = %q, want generic", cfg.API.Mode)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
economy:
  enable_user_limit: false
  enable_group_limit: true
  enable_checkin: true
  checkin_fixed_reward: 7
api:
  mode: gemini
  gemini_keys: ["k1"]
admin_ids: ["12345"]
user_blacklist: ["666"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Economy.EnableUserLimit {
		t.Error("Expected user limit disabled by file")
	}
	if !cfg.Economy.EnableGroupLimit || !cfg.Economy.EnableCheckin {
		t.Error("Expected group limit and check-in enabled by file")
	}
	if cfg.Economy.CheckinFixedReward != 7 {
		t.Errorf("Fixed reward = %d, want 7", cfg.Economy.CheckinFixedReward)
	}
	if cfg.API.Mode != "gemini" {
		t.Errorf("API mode = %q, want gemini", cfg.API.Mode)
	}
	if !cfg.IsAdmin("12345") || cfg.IsAdmin("99999") {
		t.Error("IsAdmin did not follow admin_ids")
	}
	if !cfg.IsBlacklisted("666") || cfg.IsBlacklisted("12345") {
		t.Error("IsBlacklisted did not follow user_blacklist")
	}
}

func TestLoadRejectsNegativeFixedReward(t *testing.T) {
	path := writeConfig(t, "economy:\n  checkin_fixed_reward: -1\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for negative fixed reward")
	}
}

func TestLoadRejectsUnknownAPIMode(t *testing.T) {
	path := writeConfig(t, "api:\n  mode: dalle\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for unknown API mode")
	}
}

func TestLoadNormalizesRandomRewardMax(t *testing.T) {
	path := writeConfig(t, "economy:\n  checkin_random_reward_max: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Economy.CheckinRandomRewardMax != 1 {
		t.Errorf("Random reward max = %d, want normalized 1", cfg.Economy.CheckinRandomRewardMax)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "economy: [not a map\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
