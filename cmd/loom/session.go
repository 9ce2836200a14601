package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"loom/internal/config"
	"loom/internal/hitl"
	"loom/internal/logging"
	"loom/internal/memory"
	"loom/internal/notifications"
	"loom/internal/pipeline"
	"loom/internal/project"
	"loom/internal/prompts"
	"loom/internal/services/llm"
	"loom/internal/stage"
	"loom/internal/storage"
	"loom/internal/workflow"
)

const traceFileName = "llm_trace.jsonl"

// session is one locked, fully wired run.
type session struct {
	cfg     *config.Config
	state   *project.State
	manager *pipeline.Manager
	logger  *slog.Logger

	lock   *flock.Flock
	runLog *logging.RunLog
	index  *project.Index
}

func (s *session) Close() error {
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	if s.runLog != nil {
		errs = append(errs, s.runLog.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
	}
	return errors.Join(errs...)
}

// openSession locks state's run directory and builds the pipeline around it.
// The caller must Close the session.
func openSession(ctx context.Context, cli *commandContext, state *project.State, in *os.File, out io.Writer) (*session, error) {
	cfg, err := cli.ensureConfig()
	if err != nil {
		return nil, err
	}
	base, err := cli.ensureLogger()
	if err != nil {
		return nil, err
	}
	if err := runPreflightChecks(cfg, base); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, state: state}
	s.lock, err = project.LockRun(state.RunDir)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*session, error) {
		_ = s.Close()
		return nil, err
	}

	s.runLog, err = logging.OpenRunLog(base, filepath.Join(state.RunDir, "logs", "run.log"))
	if err != nil {
		return fail(err)
	}
	s.logger = s.runLog.Logger.With(logging.String(logging.FieldRunID, state.RunID))

	s.index, err = project.OpenIndex(cfg)
	if err != nil {
		return fail(err)
	}
	persister := project.SnapshotPersister{Index: s.index}

	store, err := storage.New(state.RunDir)
	if err != nil {
		return fail(err)
	}
	catalog, err := prompts.Load(cfg.Paths.PromptsFile)
	if err != nil {
		return fail(err)
	}
	inner, err := llm.NewProvider(cfg.GetLLM())
	if err != nil {
		return fail(err)
	}
	provider, err := llm.NewTracing(inner, filepath.Join(state.RunDir, "logs", traceFileName))
	if err != nil {
		return fail(err)
	}

	var ui hitl.Interface
	if cli.batch() || !cfg.Workflow.Interactive {
		ui = hitl.NewBatch(s.logger)
	} else {
		ui = hitl.Detect(in, out, s.logger)
	}
	notifier := notifications.NewService(cfg, ui, s.logger)

	engine := workflow.NewEngine(cfg, state, workflow.Deps{
		Persister: persister,
		Store:     store,
		Provider:  provider,
		Catalog:   catalog,
		UI:        ui,
		Notifier:  notifier,
		Logger:    s.logger,
	})
	consolidator := memory.NewLLMConsolidator(provider, catalog, prompts.ContentVars(cfg.Content))
	handlers := stage.Handlers(&stage.Env{
		Config:     cfg,
		Engine:     engine,
		Store:      store,
		Provider:   provider,
		Catalog:    catalog,
		Memory:     memory.NewManager(state, persister, consolidator, s.logger),
		Summarizer: consolidator,
		Persister:  persister,
		Notifier:   notifier,
		Logger:     s.logger,
	})
	s.manager = pipeline.NewManager(cfg, state, persister, handlers,
		pipeline.WithNotifier(notifier),
		pipeline.WithUI(ui),
		pipeline.WithLogger(s.logger),
	)

	if err := persister.Save(ctx, state); err != nil {
		return fail(fmt.Errorf("checkpoint run: %w", err))
	}
	return s, nil
}
