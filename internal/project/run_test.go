package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"loom/internal/project"
	"loom/internal/testsupport"
)

func TestNewRunIDFormat(t *testing.T) {
	id := project.NewRunID(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	pattern := regexp.MustCompile(`^2026-03-04_05-06-07_[0-9a-f]{8}$`)
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected run id %q", id)
	}
}

func TestCreateRunWritesConfigSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = "secret"
	cfg.Content.Title = "Glass Harbor"
	state := testsupport.NewState(t, cfg)

	if state.Phase != project.PhaseInit || state.Title != "Glass Harbor" {
		t.Fatalf("unexpected state: %+v", state)
	}
	snapshot := testsupport.ReadFile(t, filepath.Join(state.RunDir, "snapshot", "config.toml"))
	if strings.Contains(snapshot, "secret") {
		t.Fatal("snapshot must not contain the api key")
	}
	if !strings.Contains(snapshot, "Glass Harbor") {
		t.Fatalf("expected title in snapshot: %s", snapshot)
	}
}

func TestResolveRunDir(t *testing.T) {
	runs := t.TempDir()
	for _, name := range []string{"2026-01-01_10-00-00_aaaa1111", "2026-01-02_10-00-00_bbbb2222", "2026-01-02_11-00-00_bbbb3333"} {
		if err := os.MkdirAll(filepath.Join(runs, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	dir, err := project.ResolveRunDir(runs, "2026-01-01_10-00-00_aaaa1111")
	if err != nil || filepath.Base(dir) != "2026-01-01_10-00-00_aaaa1111" {
		t.Fatalf("exact match failed: %q %v", dir, err)
	}
	dir, err = project.ResolveRunDir(runs, "aaaa")
	if err != nil || filepath.Base(dir) != "2026-01-01_10-00-00_aaaa1111" {
		t.Fatalf("substring match failed: %q %v", dir, err)
	}
	if _, err := project.ResolveRunDir(runs, "bbbb"); !errors.Is(err, project.ErrAmbiguousRun) {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	if _, err := project.ResolveRunDir(runs, "zzzz"); !errors.Is(err, project.ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := project.ResolveRunDir(filepath.Join(runs, "missing"), "aaaa"); !errors.Is(err, project.ErrRunNotFound) {
		t.Fatalf("expected not found for missing runs dir, got %v", err)
	}
}

func TestLockRunIsExclusive(t *testing.T) {
	dir := t.TempDir()
	lock, err := project.LockRun(dir)
	if err != nil {
		t.Fatalf("LockRun: %v", err)
	}
	if _, err := project.LockRun(dir); !errors.Is(err, project.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	again, err := project.LockRun(dir)
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = again.Unlock()
}
