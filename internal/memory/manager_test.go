package memory_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"loom/internal/memory"
	"loom/internal/project"
	"loom/internal/testsupport"
)

type recordingConsolidator struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (r *recordingConsolidator) ConsolidateSummaries(_ context.Context, summaries []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	batch := append([]string(nil), summaries...)
	r.batches = append(r.batches, batch)
	return "chapter: " + strings.Join(batch, "+"), nil
}

func chainState(t *testing.T, n int) *project.State {
	t.Helper()
	state := project.NewState("r", t.TempDir())
	testsupport.Chain(t, state, n)
	return state
}

func TestLinearPathEndsAtTarget(t *testing.T) {
	state := chainState(t, 4)
	alt := project.NewSceneNode(9, "alt")
	if err := state.AddBranch(2, alt); err != nil {
		t.Fatal(err)
	}
	manager := memory.NewManager(state, nil, &recordingConsolidator{}, nil)

	for target, want := range map[int][]int{
		1: {1},
		4: {1, 2, 3, 4},
		9: {1, 2, 9},
	} {
		path := manager.LinearPath(target)
		if len(path) != len(want) {
			t.Fatalf("LinearPath(%d) length %d, want %d", target, len(path), len(want))
		}
		for i, node := range path {
			if node.ID != want[i] {
				t.Fatalf("LinearPath(%d)[%d] = %d, want %d", target, i, node.ID, want[i])
			}
		}
		if path[len(path)-1].ID != target {
			t.Fatalf("LinearPath(%d) does not end at target", target)
		}
	}
}

func TestLinearPathMissingTargetIsEmpty(t *testing.T) {
	manager := memory.NewManager(chainState(t, 3), nil, &recordingConsolidator{}, nil)
	path := manager.LinearPath(42)
	if path == nil || len(path) != 0 {
		t.Fatalf("expected empty non-nil path, got %v", path)
	}
}

func TestConsolidateChainOfTwenty(t *testing.T) {
	state := chainState(t, 20)
	persister := &testsupport.MemoryPersister{}
	consolidator := &recordingConsolidator{}
	manager := memory.NewManager(state, persister, consolidator, nil)
	ctx := context.Background()

	for depth := 1; depth < 10; depth++ {
		if err := manager.Consolidate(ctx, depth, 10, 5); err != nil {
			t.Fatalf("Consolidate(%d): %v", depth, err)
		}
	}
	if len(state.ArchivedSummaries) != 0 {
		t.Fatalf("archived before the window filled: %v", state.ArchivedSummaries)
	}

	if err := manager.Consolidate(ctx, 10, 10, 5); err != nil {
		t.Fatalf("Consolidate(10): %v", err)
	}
	if len(state.ArchivedSummaries) != 1 || state.ArchivedSummaries[0] != "chapter: s1+s2+s3+s4+s5" {
		t.Fatalf("unexpected first archive: %v", state.ArchivedSummaries)
	}
	if state.ArchiveDepth != 5 || state.LastArchivedSceneID != 5 {
		t.Fatalf("unexpected cursor after first archive: depth=%d id=%d", state.ArchiveDepth, state.LastArchivedSceneID)
	}

	if err := manager.Consolidate(ctx, 10, 10, 5); err != nil {
		t.Fatalf("repeat Consolidate(10): %v", err)
	}
	if len(state.ArchivedSummaries) != 1 {
		t.Fatalf("repeat call must be a no-op, got %d archives", len(state.ArchivedSummaries))
	}

	if err := manager.Consolidate(ctx, 20, 10, 5); err != nil {
		t.Fatalf("Consolidate(20): %v", err)
	}
	if len(state.ArchivedSummaries) != 2 || state.ArchivedSummaries[1] != "chapter: s6+s7+s8+s9+s10" {
		t.Fatalf("unexpected second archive: %v", state.ArchivedSummaries)
	}
	if state.ArchiveDepth != 10 || state.LastArchivedSceneID != 10 {
		t.Fatalf("unexpected cursor after second archive: depth=%d id=%d", state.ArchiveDepth, state.LastArchivedSceneID)
	}
	if persister.Saves() != 2 {
		t.Fatalf("expected one save per trigger, got %d", persister.Saves())
	}
}

func TestConsolidateChainOfTwelve(t *testing.T) {
	state := chainState(t, 12)
	consolidator := &recordingConsolidator{}
	manager := memory.NewManager(state, &testsupport.MemoryPersister{}, consolidator, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := manager.Consolidate(ctx, 12, 10, 5); err != nil {
			t.Fatalf("Consolidate: %v", err)
		}
	}
	if len(consolidator.batches) != 1 {
		t.Fatalf("expected exactly one consolidation, got %d", len(consolidator.batches))
	}
	if got := strings.Join(consolidator.batches[0], ","); got != "s1,s2,s3,s4,s5" {
		t.Fatalf("unexpected batch %q", got)
	}
	if state.ArchiveDepth != 5 {
		t.Fatalf("expected scenes 6-12 to stay unarchived, cursor=%d", state.ArchiveDepth)
	}
}

func TestConsolidateSkipsMissingSummaries(t *testing.T) {
	state := chainState(t, 10)
	for _, id := range []int{2, 4} {
		node, _ := state.FindScene(id)
		node.Summary = ""
	}
	consolidator := &recordingConsolidator{}
	manager := memory.NewManager(state, nil, consolidator, nil)
	if err := manager.Consolidate(context.Background(), 10, 10, 5); err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if got := strings.Join(consolidator.batches[0], ","); got != "s1,s3,s5" {
		t.Fatalf("unexpected batch %q", got)
	}
	if state.ArchiveDepth != 5 {
		t.Fatalf("expected cursor to advance by the batch size, got %d", state.ArchiveDepth)
	}
}

func TestConsolidateEmptyBatchDoesNotAdvance(t *testing.T) {
	state := chainState(t, 10)
	for id := 1; id <= 5; id++ {
		node, _ := state.FindScene(id)
		node.Summary = ""
	}
	consolidator := &recordingConsolidator{}
	manager := memory.NewManager(state, nil, consolidator, nil)
	if err := manager.Consolidate(context.Background(), 10, 10, 5); err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(consolidator.batches) != 0 || state.ArchiveDepth != 0 || len(state.ArchivedSummaries) != 0 {
		t.Fatalf("empty batch must not archive: batches=%d depth=%d", len(consolidator.batches), state.ArchiveDepth)
	}
}

func TestConsolidateMissingSceneWarnsOnly(t *testing.T) {
	state := chainState(t, 3)
	manager := memory.NewManager(state, nil, &recordingConsolidator{}, nil)
	if err := manager.Consolidate(context.Background(), 99, 10, 5); err != nil {
		t.Fatalf("expected nil error for missing scene, got %v", err)
	}
}

func TestConsolidateFailureLeavesCursor(t *testing.T) {
	state := chainState(t, 10)
	persister := &testsupport.MemoryPersister{}
	manager := memory.NewManager(state, persister, &recordingConsolidator{err: errors.New("provider down")}, nil)
	if err := manager.Consolidate(context.Background(), 10, 10, 5); err == nil {
		t.Fatal("expected consolidator error")
	}
	if state.ArchiveDepth != 0 || persister.Saves() != 0 {
		t.Fatalf("failed consolidation must not mutate state: depth=%d saves=%d", state.ArchiveDepth, persister.Saves())
	}
}

func TestConsolidateBranchUsesPathDepth(t *testing.T) {
	state := chainState(t, 3)
	// Branch ids far from their depth: path 1,2,3,100..106 has depth 10.
	parent := 3
	for id := 100; id <= 106; id++ {
		node := project.NewSceneNode(id, "")
		node.Status = project.SceneDone
		node.Summary = "b"
		if err := state.AddBranch(parent, node); err != nil {
			t.Fatal(err)
		}
		parent = id
	}
	consolidator := &recordingConsolidator{}
	manager := memory.NewManager(state, nil, consolidator, nil)
	if err := manager.Consolidate(context.Background(), 106, 10, 5); err != nil {
		t.Fatal(err)
	}
	if len(consolidator.batches) != 1 || strings.Join(consolidator.batches[0], ",") != "s1,s2,s3,b,b" {
		t.Fatalf("unexpected batches %v", consolidator.batches)
	}
	if state.LastArchivedSceneID != 101 {
		t.Fatalf("expected mirror to record scene 101, got %d", state.LastArchivedSceneID)
	}
}

func TestConsolidateRejectsNonPositiveSizes(t *testing.T) {
	manager := memory.NewManager(chainState(t, 1), nil, &recordingConsolidator{}, nil)
	if err := manager.Consolidate(context.Background(), 1, 0, 5); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func flatState(t *testing.T, n int) *project.State {
	t.Helper()
	state := project.NewState("r", t.TempDir())
	for id := 1; id <= n; id++ {
		node := project.NewSceneNode(id, "")
		node.Status = project.SceneDone
		node.Summary = fmt.Sprintf("s%d", id)
		if err := state.AddScene(node); err != nil {
			t.Fatal(err)
		}
	}
	return state
}

func TestLinearPathReadsEarlierRootsInOrder(t *testing.T) {
	state := flatState(t, 6)
	detour := project.NewSceneNode(20, "")
	if err := state.AddBranch(2, detour); err != nil {
		t.Fatal(err)
	}
	manager := memory.NewManager(state, nil, &recordingConsolidator{}, nil)

	for target, want := range map[int][]int{
		1:  {1},
		6:  {1, 2, 20, 3, 4, 5, 6},
		20: {1, 2, 20},
	} {
		var got []int
		for _, node := range manager.LinearPath(target) {
			got = append(got, node.ID)
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("LinearPath(%d) = %v, want %v", target, got, want)
		}
	}
}

func TestConsolidateFlatRootsArchivesByReadingOrder(t *testing.T) {
	state := flatState(t, 12)
	consolidator := &recordingConsolidator{}
	manager := memory.NewManager(state, nil, consolidator, nil)
	ctx := context.Background()

	for id := 1; id <= 12; id++ {
		if err := manager.Consolidate(ctx, id, 10, 5); err != nil {
			t.Fatalf("Consolidate(%d): %v", id, err)
		}
	}
	if len(consolidator.batches) != 1 || strings.Join(consolidator.batches[0], ",") != "s1,s2,s3,s4,s5" {
		t.Fatalf("unexpected batches %v", consolidator.batches)
	}
	if state.ArchiveDepth != 5 || state.LastArchivedSceneID != 5 {
		t.Fatalf("unexpected cursor: depth=%d id=%d", state.ArchiveDepth, state.LastArchivedSceneID)
	}
}
