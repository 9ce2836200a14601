package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"loom/internal/config"
)

const (
	runIDTimeLayout = "2006-01-02_15-04-05"
	lockFileName    = ".lock"
	snapshotDir     = "snapshot"
)

var (
	// ErrRunNotFound indicates no run directory matches the requested id.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun indicates a partial id matched more than one run.
	ErrAmbiguousRun = errors.New("run id is ambiguous")
	// ErrRunLocked indicates another driver holds the run lock.
	ErrRunLocked = errors.New("run is locked by another process")
)

// NewRunID returns an id of the form YYYY-MM-DD_HH-MM-SS_<8 hex>, which sorts
// chronologically as a directory name.
func NewRunID(now time.Time) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.Format(runIDTimeLayout) + "_" + short
}

// CreateRun makes a new run directory under runs_dir, writes the config
// snapshot, and returns an INIT state that has not been persisted yet.
func CreateRun(cfg *config.Config) (*State, error) {
	if cfg == nil {
		return nil, errors.New("create run: config required")
	}
	runID := NewRunID(time.Now())
	runDir := filepath.Join(cfg.Paths.RunsDir, runID)
	for _, dir := range []string{runDir, filepath.Join(runDir, snapshotDir), filepath.Join(runDir, "logs")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
	}
	snapshot, err := cfg.Encode()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(runDir, snapshotDir, "config.toml"), snapshot, 0o644); err != nil {
		return nil, fmt.Errorf("write config snapshot: %w", err)
	}
	state := NewState(runID, runDir)
	state.Title = cfg.Content.Title
	return state, nil
}

// ResolveRunDir finds a run by exact id, falling back to a unique substring
// match against the directory names under runsDir.
func ResolveRunDir(runsDir, runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	exact := filepath.Join(runsDir, runID)
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		return exact, nil
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return "", fmt.Errorf("read runs directory: %w", err)
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && strings.Contains(entry.Name(), runID) {
			matches = append(matches, entry.Name())
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	case 1:
		return filepath.Join(runsDir, matches[0]), nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousRun, runID, strings.Join(matches, ", "))
	}
}

// LockRun takes the per-run driver lock. Callers must Unlock when done.
func LockRun(runDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(runDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, runDir)
	}
	return lock, nil
}
