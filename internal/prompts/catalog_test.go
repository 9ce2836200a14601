package prompts_test

import (
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/prompts"
	"loom/internal/testsupport"
)

func TestDefaultCatalogHasPipelineEntries(t *testing.T) {
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	names := strings.Join(catalog.Names(), ",")
	for _, name := range []string{
		prompts.Ideation, prompts.Outline, prompts.Bible,
		prompts.ScenePlanExtract, prompts.ScenePlanExpand, prompts.ScenePlanAnalysis,
		prompts.Drafting, prompts.Revise, prompts.Consolidate, prompts.Summarize,
	} {
		if !strings.Contains(names, name) {
			t.Fatalf("catalog missing %q (have %s)", name, names)
		}
	}
}

func TestRenderCombinesGlobalAndEntrySystem(t *testing.T) {
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Content.Title = "Salt Roads"
	cfg.Content.Tags = []string{"sea", "grief"}
	vars := prompts.ContentVars(cfg.Content).Merge(prompts.Vars{"Outline": "act one", "Bible": "", "NumScenes": 12})

	system, prompt, err := catalog.Render(prompts.ScenePlanExtract, vars)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(system, "Salt Roads") || !strings.Contains(system, "JSON array") {
		t.Fatalf("unexpected system prompt: %s", system)
	}
	if !strings.Contains(prompt, "about 12 scenes") || !strings.Contains(prompt, "act one") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}

	_, ideation, err := catalog.Render(prompts.Ideation, vars)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ideation, "sea, grief") {
		t.Fatalf("expected joined tags: %s", ideation)
	}
}

func TestRenderDraftingToleratesSparseMeta(t *testing.T) {
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	vars := prompts.ContentVars(config.Default().Content).Merge(prompts.Vars{
		"Recency": "Story start.", "Outline": "o", "Bible": "b",
		"SceneID": 3, "SceneTitle": "The Pier", "Preconditions": "",
		"Meta": map[string]any{"goal": "find the letter"},
	})
	_, prompt, err := catalog.Render(prompts.Drafting, vars)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(prompt, "Goal: find the letter") || strings.Contains(prompt, "Conflict:") {
		t.Fatalf("unexpected drafting prompt: %s", prompt)
	}
	if strings.Contains(prompt, "<no value>") {
		t.Fatalf("unexpected placeholder in prompt: %s", prompt)
	}
}

func TestLoadAppliesOverridesFieldByField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	testsupport.WriteFile(t, path, "global_system: \"Be brief.\"\nsummarize:\n  prompt: \"Shorten: {{.Text}}\"\n")

	catalog, err := prompts.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	system, prompt, err := catalog.Render(prompts.Summarize, prompts.Vars{"Text": "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if system != "Be brief." || prompt != "Shorten: abc" {
		t.Fatalf("override not applied: %q %q", system, prompt)
	}
	reviseSystem, _, err := catalog.Render(prompts.Revise, prompts.Vars{"Feedback": "x", "Content": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reviseSystem, "apply only the") {
		t.Fatalf("expected default revise system to survive: %q", reviseSystem)
	}
}

func TestLoadRejectsBrokenTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	testsupport.WriteFile(t, path, "outline:\n  prompt: \"{{.Idea\"\n")
	if _, err := prompts.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := prompts.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestRenderUnknownPrompt(t *testing.T) {
	catalog, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := catalog.Render("polish", prompts.Vars{}); err == nil {
		t.Fatal("expected unknown prompt error")
	}
}
