package testsupport

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"loom/internal/config"
	"loom/internal/project"
)

// MustOpenIndex opens a project.Index for tests and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config) *project.Index {
	t.Helper()

	index, err := project.OpenIndex(cfg)
	if err != nil {
		t.Fatalf("project.OpenIndex: %v", err)
	}
	t.Cleanup(func() {
		index.Close()
	})
	return index
}

// NewState creates a fresh run directory and INIT state for cfg.
func NewState(t testing.TB, cfg *config.Config) *project.State {
	t.Helper()

	state, err := project.CreateRun(cfg)
	if err != nil {
		t.Fatalf("project.CreateRun: %v", err)
	}
	return state
}

// Chain appends n root scenes with ids 1..n, each a branch of the previous
// one, so the linear path to scene n has depth n. Every node is done and
// carries the summary "s<id>".
func Chain(t testing.TB, state *project.State, n int) {
	t.Helper()

	for id := 1; id <= n; id++ {
		node := project.NewSceneNode(id, "")
		node.Status = project.SceneDone
		node.Summary = "s" + strconv.Itoa(id)
		var err error
		if id == 1 {
			err = state.AddScene(node)
		} else {
			err = state.AddBranch(id-1, node)
		}
		if err != nil {
			t.Fatalf("build chain: %v", err)
		}
	}
}

// MemoryPersister records saves in memory. Set Err to make Save fail.
type MemoryPersister struct {
	mu     sync.Mutex
	Err    error
	saves  int
	phases []project.Phase
}

// Save implements project.Persister.
func (m *MemoryPersister) Save(_ context.Context, state *project.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.saves++
	if state != nil {
		m.phases = append(m.phases, state.Phase)
	}
	return nil
}

// Saves returns the number of successful saves.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Phases returns the phase recorded by each successful save.
func (m *MemoryPersister) Phases() []project.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]project.Phase, len(m.phases))
	copy(out, m.phases)
	return out
}
