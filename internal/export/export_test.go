package export_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/export"
	"loom/internal/project"
	"loom/internal/storage"
	"loom/internal/testsupport"
)

func scene(t *testing.T, state *project.State, id int, title, text string) *project.SceneNode {
	t.Helper()
	node := project.NewSceneNode(id, title)
	if text != "" {
		path := filepath.Join(state.RunDir, "scenes", fmt.Sprintf("scene_%03d.json", id))
		data, err := json.Marshal(map[string]any{"scene_id": id, "content": text})
		if err != nil {
			t.Fatal(err)
		}
		testsupport.WriteFile(t, path, string(data))
		node.ContentPath = path
		node.Status = project.SceneDone
	}
	return node
}

func TestCompileFollowsReadingOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	state := testsupport.NewState(t, cfg)
	store, err := storage.New(state.RunDir)
	if err != nil {
		t.Fatal(err)
	}
	root := scene(t, state, 1, "the arrival", "Ana stepped off the ferry.")
	if err := state.AddScene(root); err != nil {
		t.Fatal(err)
	}
	for _, branch := range []*project.SceneNode{
		scene(t, state, 2, "left turn", "She went left."),
		scene(t, state, 3, "right turn", "She went right."),
	} {
		if err := state.AddBranch(1, branch); err != nil {
			t.Fatal(err)
		}
	}
	if err := state.AddScene(scene(t, state, 4, "", "")); err != nil {
		t.Fatal(err)
	}
	root.Meta[project.SelectedBranchKey] = 3

	result, err := export.Compile(state, store, "the long fall")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if filepath.Base(result.Path) != "the_long_fall.md" || state.ExportPath != result.Path {
		t.Fatalf("unexpected export path %q (state %q)", result.Path, state.ExportPath)
	}
	if result.Chapters != 2 || len(result.Skipped) != 1 || result.Skipped[0] != 4 {
		t.Fatalf("unexpected result %+v", result)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"# The Long Fall", "## Chapter 1: The Arrival", "## Chapter 2: Right Turn", "She went right."} {
		if !strings.Contains(text, want) {
			t.Fatalf("manuscript missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "She went left.") {
		t.Fatalf("unselected branch must not be exported:\n%s", text)
	}
}

func TestCompileWithoutDraftsFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	state := testsupport.NewState(t, cfg)
	store, err := storage.New(state.RunDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := state.AddScene(project.NewSceneNode(1, "empty")); err != nil {
		t.Fatal(err)
	}
	if _, err := export.Compile(state, store, ""); !errors.Is(err, export.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}
