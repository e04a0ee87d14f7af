package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFile_WritesDefaults(t *testing.T) {
	// GIVEN: A config path that does not exist yet
	// WHEN: Loading
	// THEN: Defaults come back and the file now exists for the next run

	path := filepath.Join(t.TempDir(), "bizflow.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" || cfg.HorizonMonths != 6 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoad_RoundTripsSavedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bizflow.yaml")

	want := &Config{
		Listen:            "0.0.0.0:9000",
		DBPath:            "/tmp/test.db",
		HorizonMonths:     9,
		MaxRows:           4,
		WeekStart:         "sunday",
		ExtensionInterval: "6h",
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestNormalize_FillsZeroAndGarbageValues(t *testing.T) {
	cfg := &Config{WeekStart: "friday", ExtensionInterval: "soon", MaxRows: -1}
	cfg.Normalize()

	if cfg.WeekStart != "monday" {
		t.Errorf("expected week start monday, got %s", cfg.WeekStart)
	}
	if cfg.ExtensionInterval != "12h" {
		t.Errorf("expected 12h interval, got %s", cfg.ExtensionInterval)
	}
	if cfg.MaxRows != 3 || cfg.HorizonMonths != 6 || cfg.Listen == "" {
		t.Errorf("unexpected normalized config: %+v", cfg)
	}
}

func TestWeekStartDay(t *testing.T) {
	if (&Config{WeekStart: "sunday"}).WeekStartDay() != time.Sunday {
		t.Error("expected Sunday")
	}
	if (&Config{WeekStart: "monday"}).WeekStartDay() != time.Monday {
		t.Error("expected Monday")
	}
}

func TestExtensionIntervalDuration(t *testing.T) {
	if d := (&Config{ExtensionInterval: "30m"}).ExtensionIntervalDuration(); d != 30*time.Minute {
		t.Errorf("expected 30m, got %v", d)
	}
	if d := (&Config{ExtensionInterval: "nope"}).ExtensionIntervalDuration(); d != 12*time.Hour {
		t.Errorf("expected fallback 12h, got %v", d)
	}
}
