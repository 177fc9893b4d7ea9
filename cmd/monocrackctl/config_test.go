package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSolveConfigKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solve.yaml")
	payload := "max_iterations: 500\nrestarts: 4\nseed: 9\nstore: memory\nupper: true\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadSolveConfig(path, solveConfig{MaxIterations: 10, Restarts: 1, Runs: 3, LogLevel: "info"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MaxIterations != 500 || cfg.Restarts != 4 || cfg.Seed != 9 || cfg.Store != "memory" || !cfg.Upper {
		t.Fatalf("unexpected config fields: %+v", cfg)
	}
	if cfg.Runs != 3 || cfg.LogLevel != "info" {
		t.Fatalf("expected defaults for unset fields, got %+v", cfg)
	}
}

func TestLoadSolveConfigErrors(t *testing.T) {
	if _, err := loadSolveConfig(filepath.Join(t.TempDir(), "missing.yaml"), solveConfig{}); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("restarts: [1, 2"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadSolveConfig(path, solveConfig{}); err == nil {
		t.Fatal("expected parse error")
	}

	cfg, err := loadSolveConfig("", solveConfig{Runs: 7})
	if err != nil || cfg.Runs != 7 {
		t.Fatalf("expected base config without a path, got %+v err=%v", cfg, err)
	}
}

func TestOverrideFromFlagsOnlyTouchesSetFlags(t *testing.T) {
	cfg := solveConfig{MaxIterations: 500, Restarts: 4, Seed: 9, Store: "memory"}
	values := map[string]any{
		"iterations": 10000,
		"restarts":   10,
		"seed":       int64(3),
		"store":      "sqlite",
	}
	if err := overrideFromFlags(&cfg, map[string]bool{"seed": true}, values); err != nil {
		t.Fatalf("override: %v", err)
	}
	if cfg.Seed != 3 {
		t.Fatalf("expected seed override, got %d", cfg.Seed)
	}
	if cfg.MaxIterations != 500 || cfg.Restarts != 4 || cfg.Store != "memory" {
		t.Fatalf("unset flags must not override config: %+v", cfg)
	}

	if err := overrideFromFlags(&cfg, map[string]bool{"bogus": true}, map[string]any{"bogus": 1}); err == nil {
		t.Fatal("expected unsupported override error")
	}
}
