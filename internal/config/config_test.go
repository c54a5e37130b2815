package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LUNCHBOT_NICK", "lunchbot")
	t.Setenv("LUNCHBOT_SERVER", "irc.example.com")
	t.Setenv("LUNCHBOT_CHANNEL", "#lunch")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Port != 6667 {
		t.Errorf("Port = %d, want 6667", cfg.Port)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
	if cfg.ExpiryInterval != time.Minute {
		t.Errorf("ExpiryInterval = %v, want 1m", cfg.ExpiryInterval)
	}
	if cfg.BackupInterval != 5*time.Minute {
		t.Errorf("BackupInterval = %v, want 5m", cfg.BackupInterval)
	}
	if cfg.BackupFile != "" || cfg.BackupDB != "" {
		t.Errorf("backups unexpectedly enabled: file=%q db=%q", cfg.BackupFile, cfg.BackupDB)
	}
}

func TestParseOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LUNCHBOT_PORT", "6697")
	t.Setenv("LUNCHBOT_BACKUP_FILE", "/var/lib/lunchbot/state.json")
	t.Setenv("LUNCHBOT_EXPIRY_INTERVAL", "30s")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got, want := cfg.Addr(), "irc.example.com:6697"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
	if cfg.BackupFile != "/var/lib/lunchbot/state.json" {
		t.Errorf("BackupFile = %q", cfg.BackupFile)
	}
	if cfg.ExpiryInterval != 30*time.Second {
		t.Errorf("ExpiryInterval = %v, want 30s", cfg.ExpiryInterval)
	}
}

func TestParseMissingRequired(t *testing.T) {
	setRequired(t)
	// t.Setenv restores the variable afterwards; unset it for this test.
	t.Setenv("LUNCHBOT_SERVER", "irc.example.com")
	os.Unsetenv("LUNCHBOT_SERVER")

	if _, err := Parse(); err == nil {
		t.Error("Parse succeeded without LUNCHBOT_SERVER, want error")
	}
}
