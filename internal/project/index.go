package project

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"loom/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current index schema version. Bump this when the
// schema changes; the index can be deleted and rebuilds as runs checkpoint.
const schemaVersion = 1

// ErrSchemaMismatch indicates the index schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Index lists runs and records checkpoint history in SQLite.
type Index struct {
	db   *sql.DB
	path string
}

// RunSummary is the index row for one run.
type RunSummary struct {
	RunID        string
	RunDir       string
	Title        string
	Phase        Phase
	SceneCount   int
	ScenesDone   int
	ArchiveDepth int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Checkpoint is one recorded snapshot.
type Checkpoint struct {
	ID           int64
	RunID        string
	Phase        Phase
	SceneCount   int
	ScenesDone   int
	ArchiveDepth int
	RecordedAt   time.Time
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenIndex initializes or connects to the run index under runs_dir.
func OpenIndex(cfg *config.Config) (*Index, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.IndexPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	index := &Index{db: db, path: dbPath}
	if err := index.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

// Path returns the database file location.
func (i *Index) Path() string { return i.path }

// Close closes the underlying database connection.
func (i *Index) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

func (i *Index) initSchema(ctx context.Context) error {
	var tableExists int
	err := i.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return i.createSchema(ctx)
	}

	var version int
	if err := i.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: index has version %d, expected %d (delete %s to rebuild it)",
			ErrSchemaMismatch, version, schemaVersion, i.path)
	}
	return nil
}

func (i *Index) createSchema(ctx context.Context) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func sceneProgress(state *State) (total, done int) {
	state.Walk(func(node *SceneNode) bool {
		total++
		if node.Status == SceneDone {
			done++
		}
		return true
	})
	return total, done
}

// RecordCheckpoint upserts the run row and appends a checkpoint row.
func (i *Index) RecordCheckpoint(ctx context.Context, state *State) error {
	ctx = ensureContext(ctx)
	total, done := sceneProgress(state)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	created := state.CreatedAt.UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		tx, err := i.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (run_id, run_dir, title, phase, scene_count, scenes_done, archive_depth, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
    run_dir = excluded.run_dir,
    title = excluded.title,
    phase = excluded.phase,
    scene_count = excluded.scene_count,
    scenes_done = excluded.scenes_done,
    archive_depth = excluded.archive_depth,
    updated_at = excluded.updated_at`,
			state.RunID, state.RunDir, state.Title, string(state.Phase), total, done, state.ArchiveDepth, created, now,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO checkpoints (run_id, phase, scene_count, scenes_done, archive_depth, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			state.RunID, string(state.Phase), total, done, state.ArchiveDepth, now,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunSummary, error) {
	var (
		summary          RunSummary
		phase            string
		created, updated string
	)
	if err := row.Scan(&summary.RunID, &summary.RunDir, &summary.Title, &phase,
		&summary.SceneCount, &summary.ScenesDone, &summary.ArchiveDepth, &created, &updated); err != nil {
		return nil, err
	}
	summary.Phase = Phase(phase)
	summary.CreatedAt = parseTime(created)
	summary.UpdatedAt = parseTime(updated)
	return &summary, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

const runColumns = "run_id, run_dir, title, phase, scene_count, scenes_done, archive_depth, created_at, updated_at"

// ListRuns returns runs ordered by most recent activity.
func (i *Index) ListRuns(ctx context.Context) ([]*RunSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := i.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY updated_at DESC, run_id DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run row, or nil when the id is not indexed.
func (i *Index) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	ctx = ensureContext(ctx)
	row := i.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Checkpoints returns the most recent checkpoints for a run, newest first.
// A limit <= 0 returns all of them.
func (i *Index) Checkpoints(ctx context.Context, runID string, limit int) ([]Checkpoint, error) {
	ctx = ensureContext(ctx)
	query := "SELECT id, run_id, phase, scene_count, scenes_done, archive_depth, recorded_at FROM checkpoints WHERE run_id = ? ORDER BY id DESC"
	args := []any{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			cp       Checkpoint
			phase    string
			recorded string
		)
		if err := rows.Scan(&cp.ID, &cp.RunID, &phase, &cp.SceneCount, &cp.ScenesDone, &cp.ArchiveDepth, &recorded); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Phase = Phase(phase)
		cp.RecordedAt = parseTime(recorded)
		out = append(out, cp)
	}
	return out, rows.Err()
}
