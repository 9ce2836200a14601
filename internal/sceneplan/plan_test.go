package sceneplan_test

import (
	"errors"
	"strings"
	"testing"

	"loom/internal/project"
	"loom/internal/sceneplan"
)

func TestParseToleratesFencesAndTrailingCommas(t *testing.T) {
	raw := "Here is the plan:\n```json\n[\n {\"id\": 1, \"title\": \"Dock\", \"summary\": \"arrival\", \"characters\": \"Ana, Ben\"},\n {\"id\": 2, \"title\": \"Storm\", \"summary\": \"wreck\", \"characters\": [\"Ana\"],},\n]\n```"
	entries, err := sceneplan.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 || entries[1].Title != "Storm" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if strings.Join(entries[0].Characters, "|") != "Ana|Ben" {
		t.Fatalf("expected comma string to split, got %v", entries[0].Characters)
	}
}

func TestParseRejectsEmptyAndGarbage(t *testing.T) {
	if _, err := sceneplan.Parse("[]"); !errors.Is(err, sceneplan.ErrEmptyPlan) {
		t.Fatalf("expected ErrEmptyPlan, got %v", err)
	}
	if _, err := sceneplan.Parse("no json here"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateReportsWarnings(t *testing.T) {
	entries := []sceneplan.Entry{
		{ID: 1, Goal: "g", Conflict: "c", Characters: sceneplan.StringList{"a"}},
		{ID: 3, Goal: "g"},
	}
	warnings, err := sceneplan.Validate(entries)
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(warnings, "\n")
	for _, want := range []string{"missing scene ids: [2]", "scene 3 missing required field: conflict", "scene 3 missing required field: characters"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("warnings missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "scene 1") {
		t.Fatalf("complete scene must not warn:\n%s", joined)
	}
	if _, err := sceneplan.Validate(nil); !errors.Is(err, sceneplan.ErrEmptyPlan) {
		t.Fatalf("expected ErrEmptyPlan, got %v", err)
	}
}

func TestApplyKeepsExistingFields(t *testing.T) {
	entry := sceneplan.Entry{ID: 1, Goal: "planned goal"}
	exp, err := sceneplan.ParseExpansion(`{"goal":"other","conflict":"storm","characters":["Ana"],"beats":["a","b"],}`)
	if err != nil {
		t.Fatalf("ParseExpansion: %v", err)
	}
	entry.Apply(exp)
	if entry.Goal != "planned goal" || entry.Conflict != "storm" || len(entry.Beats) != 2 {
		t.Fatalf("unexpected merge %+v", entry)
	}
}

func TestBuildScenesCreatesTreeWithBranches(t *testing.T) {
	state := project.NewState("r", t.TempDir())
	entries := []sceneplan.Entry{
		{ID: 1, Title: "Dock", Summary: "arrival", Goal: "land", Branches: []sceneplan.Entry{
			{ID: 2, Title: "Alt dock", Preconditions: "if Ana lies"},
		}},
		{ID: 2, Title: "Storm"},
	}
	if err := sceneplan.BuildScenes(state, entries); err != nil {
		t.Fatalf("BuildScenes: %v", err)
	}
	if err := state.Validate(); err != nil {
		t.Fatalf("tree invalid: %v", err)
	}
	if len(state.Scenes) != 2 || state.SceneCount() != 3 {
		t.Fatalf("expected 2 roots and 3 nodes, got %d/%d", len(state.Scenes), state.SceneCount())
	}
	root := state.Scenes[0]
	if root.Status != project.ScenePending || root.Meta["goal"] != "land" || root.Meta["summary"] != "arrival" {
		t.Fatalf("unexpected root %+v", root)
	}
	branch := root.Branches[0]
	if branch.ParentID == nil || *branch.ParentID != root.ID || branch.Preconditions != "if Ana lies" {
		t.Fatalf("unexpected branch %+v", branch)
	}
	if state.Scenes[1].ID == branch.ID {
		t.Fatal("colliding planned ids must be reassigned")
	}
}

func TestMarkdownIncludesBranchesAndFailures(t *testing.T) {
	md := sceneplan.Markdown([]sceneplan.Entry{
		{ID: 1, Title: "Dock", Goal: "land", Branches: []sceneplan.Entry{{ID: 2, Title: "Alt"}}},
		{ID: 3, Title: "Storm", ExpansionError: "timeout"},
	})
	for _, want := range []string{"## 1. Dock", "### 2. Alt", "- Goal: land", "Expansion failed: timeout"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestAllVisitsBranchesAfterParent(t *testing.T) {
	entries := []sceneplan.Entry{
		{ID: 1, Branches: []sceneplan.Entry{
			{ID: 4, Branches: []sceneplan.Entry{{ID: 5}}},
		}},
		{ID: 2},
	}
	all := sceneplan.All(entries)
	var ids []int
	for _, entry := range all {
		ids = append(ids, entry.ID)
	}
	if len(ids) != 4 || ids[0] != 1 || ids[1] != 4 || ids[2] != 5 || ids[3] != 2 {
		t.Fatalf("unexpected order %v", ids)
	}
	all[2].Goal = "hold the line"
	if entries[0].Branches[0].Branches[0].Goal != "hold the line" {
		t.Fatal("All must return pointers into the plan")
	}
}
