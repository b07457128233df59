package config

import (
	"testing"
)

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SHIFTOPT_TEST_INT", "42")
	if got := getEnvInt("SHIFTOPT_TEST_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if got := getEnvInt("SHIFTOPT_TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}

	t.Setenv("SHIFTOPT_TEST_INT", "not-a-number")
	if got := getEnvInt("SHIFTOPT_TEST_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7 for garbage value, got %d", got)
	}
}

func TestGetEnvCSV(t *testing.T) {
	t.Setenv("SHIFTOPT_TEST_CSV", "http://a.example, http://b.example ,")
	got := getEnvCSV("SHIFTOPT_TEST_CSV", []string{"fallback"})
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Errorf("Unexpected CSV parse result: %v", got)
	}

	t.Setenv("SHIFTOPT_TEST_CSV", "  ")
	got = getEnvCSV("SHIFTOPT_TEST_CSV", []string{"fallback"})
	if len(got) != 1 || got[0] != "fallback" {
		t.Errorf("Expected fallback for blank value, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOGS_FOLDER", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Expected default port 8000, got %d", cfg.Port)
	}
	if cfg.MaxConcurrentOptimizations != 10 {
		t.Errorf("Expected default concurrency 10, got %d", cfg.MaxConcurrentOptimizations)
	}
	if cfg.GAPopulation != 50 || cfg.GAGenerations != 100 {
		t.Errorf("Unexpected GA defaults: %d/%d", cfg.GAPopulation, cfg.GAGenerations)
	}
}
