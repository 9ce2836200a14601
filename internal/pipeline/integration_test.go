package pipeline_test

import (
	"context"
	"testing"

	"loom/internal/logging"
	"loom/internal/memory"
	"loom/internal/pipeline"
	"loom/internal/project"
	"loom/internal/prompts"
	"loom/internal/services/llm"
	"loom/internal/stage"
	"loom/internal/storage"
	"loom/internal/testsupport"
	"loom/internal/workflow"
)

func TestMockRunCompletesEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBranching(2))
	state := testsupport.NewState(t, cfg)
	store, err := storage.New(state.RunDir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatalf("prompts.Default: %v", err)
	}
	provider := llm.NewMock()
	persister := project.SnapshotPersister{}
	logger := logging.NewNop()
	notifier := &recordingNotifier{}
	consolidator := memory.NewLLMConsolidator(provider, catalog, prompts.ContentVars(cfg.Content))
	engine := workflow.NewEngine(cfg, state, workflow.Deps{
		Persister: persister,
		Store:     store,
		Provider:  provider,
		Catalog:   catalog,
		Notifier:  notifier,
		Logger:    logger,
	})
	handlers := stage.Handlers(&stage.Env{
		Config:     cfg,
		Engine:     engine,
		Store:      store,
		Provider:   provider,
		Catalog:    catalog,
		Memory:     memory.NewManager(state, persister, consolidator, logger),
		Summarizer: consolidator,
		Persister:  persister,
		Notifier:   notifier,
		Logger:     logger,
	})
	manager := pipeline.NewManager(cfg, state, persister, handlers,
		pipeline.WithNotifier(notifier), pipeline.WithLogger(logger))

	if err := manager.RunAuto(context.Background(), 0); err != nil {
		t.Fatalf("RunAuto: %v", err)
	}
	if state.Phase != project.PhaseDone {
		t.Fatalf("expected done, got %s", state.Phase)
	}

	loaded, err := project.LoadState(state.RunDir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.Phase != project.PhaseDone || loaded.SceneCount() != 3 {
		t.Fatalf("unexpected persisted state: phase=%s scenes=%d", loaded.Phase, loaded.SceneCount())
	}
	loaded.Walk(func(node *project.SceneNode) bool {
		if len(node.Candidates) != 2 || node.SelectedCandidateID != "v1" {
			t.Fatalf("scene %d: expected two branches with v1 selected, got %d/%q",
				node.ID, len(node.Candidates), node.SelectedCandidateID)
		}
		return true
	})
	if !notifier.has("run_completed") {
		t.Fatal("expected run completed notification")
	}
}
