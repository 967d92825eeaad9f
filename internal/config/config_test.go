package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def := Default()
	if cfg.Listen != def.Listen || cfg.TickSeconds != def.TickSeconds || len(cfg.Rooms) != len(def.Rooms) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomboard.yaml")
	data := `
listen: ":9090"
log_level: debug
tz_offset_hours: 9
tick_seconds: 30
rooms:
  - key: "Phòng A"
    name: "Phòng A"
working_hours:
  enforce: true
  start: "08:00"
  end: "17:30"
persistence:
  mode: http
  base_url: "http://rooms.example.com"
  timeout_seconds: 5
session_ttl: "1h"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.TZOffsetHours != 9 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TickPeriod() != 30*time.Second {
		t.Errorf("TickPeriod = %v", cfg.TickPeriod())
	}
	if cfg.PersistenceTimeout() != 5*time.Second {
		t.Errorf("PersistenceTimeout = %v", cfg.PersistenceTimeout())
	}
	ttl, err := cfg.ParsedSessionTTL()
	if err != nil || ttl != time.Hour {
		t.Errorf("ParsedSessionTTL = %v, %v", ttl, err)
	}
	if !cfg.WorkingHours.Enforce || cfg.WorkingHours.End != "17:30" {
		t.Errorf("working hours = %+v", cfg.WorkingHours)
	}
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomboard.yaml")
	if err := os.WriteFile(path, []byte(`listen: ":9090"`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROOMBOARD_LISTEN", ":7070")
	t.Setenv("ROOMBOARD_TICK_SECONDS", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("Listen = %q, want env override", cfg.Listen)
	}
	if cfg.TickSeconds != 5 {
		t.Errorf("TickSeconds = %d, want 5", cfg.TickSeconds)
	}
}

func TestLoad_ValidatesPersistenceMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomboard.yaml")
	if err := os.WriteFile(path, []byte("persistence:\n  mode: carrier-pigeon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("unknown persistence mode should fail validation")
	}
}

func TestLoad_HTTPModeRequiresBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomboard.yaml")
	if err := os.WriteFile(path, []byte("persistence:\n  mode: http\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("http mode without a base url should fail validation")
	}
}

func TestLoad_RejectsInvertedWorkingHours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomboard.yaml")
	if err := os.WriteFile(path, []byte("working_hours:\n  start: \"19:00\"\n  end: \"07:00\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("inverted working hours should fail validation")
	}
}

func TestParsedSessionTTL_EmptyDefaultsTo12Hours(t *testing.T) {
	cfg := Default()
	cfg.SessionTTL = ""
	ttl, err := cfg.ParsedSessionTTL()
	if err != nil || ttl != 12*time.Hour {
		t.Errorf("ParsedSessionTTL = %v, %v", ttl, err)
	}
}
