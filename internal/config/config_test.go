package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "placeholder")
	os.Unsetenv("DATABASE_URL")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/coach")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.RealtimeBackend != "memory" {
		t.Fatalf("expected memory backend, got %q", cfg.RealtimeBackend)
	}
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Fatalf("expected 10MB upload limit, got %d", cfg.MaxUploadBytes())
	}
	if cfg.ResyncInterval() != 30*time.Second {
		t.Fatalf("expected 30s resync, got %v", cfg.ResyncInterval())
	}
	if cfg.Location() != time.Local {
		t.Fatalf("expected local zone by default")
	}
}

func TestConfigLocation_FallsBackOnUnknownZone(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus"}
	if cfg.Location() != time.Local {
		t.Fatalf("expected fallback to local zone")
	}
	cfg.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Fatalf("expected UTC, got %s", cfg.Location())
	}
}
