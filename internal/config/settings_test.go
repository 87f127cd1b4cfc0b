package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "monitor.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"teamInboxId": "team-1"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TaskWindowDays != DefaultTaskWindowDays {
		t.Fatalf("expected default task window, got %d", cfg.TaskWindowDays)
	}
	if cfg.EscalationThresholdDays != DefaultEscalationThresholdDays {
		t.Fatalf("expected default escalation threshold, got %d", cfg.EscalationThresholdDays)
	}
	if cfg.SecurityStoreBackend != "memory" {
		t.Fatalf("expected memory security store default, got %q", cfg.SecurityStoreBackend)
	}
	if cfg.TeamInboxID != "team-1" {
		t.Fatalf("expected configured team inbox to survive defaulting, got %q", cfg.TeamInboxID)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"notARecognizedKey": true}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized config key")
	}
}

func TestLoad_EnvOverridesPostgresDSN(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"postgresDsn": "postgres://file-value"}`)
	t.Setenv("DATABASE_URL", "postgres://env-value")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PostgresDSN != "postgres://env-value" {
		t.Fatalf("expected env override, got %q", cfg.PostgresDSN)
	}
}
