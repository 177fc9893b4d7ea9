package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"monocrack/internal/cipher"
	"monocrack/internal/stats"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected missing command error")
	}
	err := run(context.Background(), []string{"crack"})
	if err == nil || !strings.Contains(err.Error(), "unknown command: crack") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestSolveThenInspectCommands(t *testing.T) {
	workdir := chdirTemp(t)
	ctx := context.Background()

	out, err := captureStdout(func() error {
		return run(ctx, []string{
			"solve",
			"--store", "memory",
			"--text", "LBO KCPK CI LBO XPV",
			"--iterations", "50",
			"--restarts", "1",
			"--runs", "2",
			"--seed", "5",
			"--log-level", "error",
		})
	})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !strings.Contains(out, "run completed run_id=") || !strings.Contains(out, "plaintext=") {
		t.Fatalf("unexpected solve output: %s", out)
	}

	entries, err := stats.ListRunIndex(filepath.Join(workdir, runsDir))
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	runID := entries[0].RunID

	out, err = captureStdout(func() error {
		return run(ctx, []string{"runs", "--store", "memory", "--json"})
	})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var listed []map[string]any
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode runs json: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0]["run_id"] != runID {
		t.Fatalf("unexpected runs output: %+v", listed)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"show", "--store", "memory", "--latest"})
	})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "run_id="+runID) {
		t.Fatalf("unexpected show output: %s", out)
	}

	if _, err := captureStdout(func() error {
		return run(ctx, []string{"progress", "--store", "memory", "--run-id", runID, "--json"})
	}); err != nil {
		t.Fatalf("progress: %v", err)
	}

	exportDir := filepath.Join(workdir, "out")
	out, err = captureStdout(func() error {
		return run(ctx, []string{"export", "--store", "memory", "--latest", "--out", exportDir})
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "exported run_id="+runID) {
		t.Fatalf("unexpected export output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(exportDir, runID, "result.json")); err != nil {
		t.Fatalf("expected exported result: %v", err)
	}
}

func TestSolveConfigFileWithFlagOverride(t *testing.T) {
	workdir := chdirTemp(t)
	configPath := filepath.Join(workdir, "solve.yaml")
	payload := "max_iterations: 20\nrestarts: 1\nruns: 1\nseed: 3\nstore: memory\nlog_level: error\n"
	if err := os.WriteFile(configPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"solve", "--config", configPath, "--seed", "8", "--text", "ABC"})
	}); err != nil {
		t.Fatalf("solve: %v", err)
	}

	entries, err := stats.ListRunIndex(filepath.Join(workdir, runsDir))
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	e := entries[0]
	if e.MaxIterations != 20 || e.Restarts != 1 || e.Runs != 1 || e.Seed != 8 {
		t.Fatalf("unexpected run config: %+v", e)
	}
}

func TestDecryptEncryptAndFreqCommands(t *testing.T) {
	key := cipher.Identity()
	key.Swap('W'-'A', 'A'-'A')
	key.Swap('K'-'A', 'B'-'A')
	key.Swap('F'-'A', 'C'-'A')
	ctx := context.Background()

	out, err := captureStdout(func() error {
		return run(ctx, []string{"encrypt", "--key", key.String(), "--text", "cab", "--upper"})
	})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.Contains(out, "ciphertext=FWK") {
		t.Fatalf("unexpected encrypt output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"decrypt", "--key", key.String(), "--text", "FWK", "--score"})
	})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !strings.Contains(out, "plaintext=CAB") || !strings.Contains(out, "score=") {
		t.Fatalf("unexpected decrypt output: %s", out)
	}

	if err := run(ctx, []string{"decrypt", "--text", "FWK"}); err == nil {
		t.Fatal("expected error without key")
	}
	if err := run(ctx, []string{"decrypt", "--key", "ABC", "--text", "FWK"}); err == nil {
		t.Fatal("expected invalid key error")
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"freq", "--text", "ABA, C!", "--json"})
	})
	if err != nil {
		t.Fatalf("freq: %v", err)
	}
	var counts []struct {
		Letter string `json:"letter"`
		Count  int    `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &counts); err != nil {
		t.Fatalf("decode freq json: %v", err)
	}
	if len(counts) != 3 || counts[0].Letter != "A" || counts[0].Count != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
