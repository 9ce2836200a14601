package stage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"loom/internal/assembler"
	"loom/internal/logging"
	"loom/internal/project"
	"loom/internal/prompts"
	"loom/internal/sceneplan"
	"loom/internal/services"
	"loom/internal/services/llm"
)

const (
	scenePlanJSON     = "04_scene_plan/scene_plan.json"
	scenePlanMarkdown = "04_scene_plan/scene_plan.md"
	scenePlanAnalysis = "04_scene_plan/analysis.md"
)

type scenePlanHandler struct {
	env *Env
}

type scenePlanFile struct {
	Scenes   []sceneplan.Entry `json:"scenes"`
	Warnings []string          `json:"warnings"`
}

func (h *scenePlanHandler) Name() string { return string(project.PhaseScenePlan) }

func (h *scenePlanHandler) HealthCheck(context.Context) Health {
	return generationHealth(h.Name(), h.env)
}

// Run extracts a scene list, expands every scene in parallel, asks for a
// consistency review, and rebuilds the scene tree from the result.
func (h *scenePlanHandler) Run(ctx context.Context, state *project.State) error {
	logger := logging.WithContext(ctx, h.env.logger("stage.scene_plan"))
	outline, err := requireArtifact(h.env, project.PhaseScenePlan, "outline", assembler.OutlineFiles)
	if err != nil {
		return err
	}
	bible, err := requireArtifact(h.env, project.PhaseScenePlan, "bible", assembler.BibleFiles)
	if err != nil {
		return err
	}
	vars := h.env.vars().Merge(prompts.Vars{"Outline": outline, "Bible": bible})

	entries, err := h.extract(ctx, vars)
	if err != nil {
		return err
	}
	h.expand(ctx, entries, vars)

	markdown := sceneplan.Markdown(entries)
	if analysis, err := generate(ctx, h.env, prompts.ScenePlanAnalysis, vars.With("Plan", markdown)); err != nil {
		logging.WarnWithContext(logger, "scene plan analysis failed", "scene_plan_analysis_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "plan saved without a consistency review"),
		)
	} else if _, err := h.env.Store.SaveText(scenePlanAnalysis, analysis+"\n"); err != nil {
		return err
	}

	warnings, err := sceneplan.Validate(entries)
	if err != nil {
		return services.Wrap(services.ErrValidation, h.Name(), "validate plan", "", err)
	}
	for _, warning := range warnings {
		logging.WarnWithContext(logger, "scene plan check", "scene_plan_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldImpact, "drafting proceeds with incomplete scene cards"),
			logging.String(logging.FieldErrorHint, "edit the plan or rerun scene_plan"),
		)
	}

	path, err := h.env.Store.SaveJSON(scenePlanJSON, scenePlanFile{Scenes: entries, Warnings: warnings})
	if err != nil {
		return err
	}
	if _, err := h.env.Store.SaveText(scenePlanMarkdown, markdown); err != nil {
		return err
	}

	if existing := state.SceneCount(); existing > 0 {
		logging.WarnWithContext(logger, "replacing existing scene tree", "scene_tree_replaced",
			logging.Int("previous_scenes", existing),
			logging.String(logging.FieldImpact, "previous drafts stay on disk but leave the tree and memory"),
		)
	}
	state.Scenes = nil
	state.ArchivedSummaries = nil
	state.ArchiveDepth = 0
	state.LastArchivedSceneID = 0
	if err := sceneplan.BuildScenes(state, entries); err != nil {
		return services.Wrap(services.ErrValidation, h.Name(), "build scene tree", "", err)
	}
	state.ScenePlanPath = path
	if err := h.env.persist(ctx, state); err != nil {
		return err
	}
	logger.Info("scene plan ready",
		logging.String(logging.FieldEventType, "scene_plan_ready"),
		logging.Int("scenes", state.SceneCount()),
		logging.Int("warnings", len(warnings)),
	)
	return nil
}

func (h *scenePlanHandler) extract(ctx context.Context, vars prompts.Vars) ([]sceneplan.Entry, error) {
	logger := logging.WithContext(ctx, h.env.logger("stage.scene_plan"))
	content := h.env.Config.Content
	numScenes := 1
	if content.AvgSceneWords > 0 {
		numScenes = max(1, content.TargetWords/content.AvgSceneWords)
	}
	vars = vars.With("NumScenes", numScenes)

	attempts := max(1, h.env.Config.ScenePlan.ParseRetries)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := generate(ctx, h.env, prompts.ScenePlanExtract, vars)
		if err == nil {
			var entries []sceneplan.Entry
			entries, err = sceneplan.Parse(text)
			if err == nil {
				return entries, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logging.WarnWithContext(logger, "scene plan extraction failed", "scene_plan_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
			logging.String(logging.FieldImpact, "retrying extraction"),
		)
	}
	return nil, services.Wrap(services.ErrValidation, h.Name(), "extract scenes",
		fmt.Sprintf("no parsable scene list after %d attempts", attempts), lastErr)
}

// expand fills each entry's scene card concurrently, branches included.
// Each worker writes only its own entry; failures are recorded on the entry.
func (h *scenePlanHandler) expand(ctx context.Context, entries []sceneplan.Entry, vars prompts.Vars) {
	all := sceneplan.All(entries)
	if len(all) == 0 {
		return
	}
	var group errgroup.Group
	group.SetLimit(min(len(all), max(1, h.env.Config.ScenePlan.MaxParallel)))
	for _, entry := range all {
		group.Go(func() error {
			exp, err := h.expandOne(ctx, *entry, vars)
			if err != nil {
				entry.ExpansionError = err.Error()
				return nil
			}
			entry.Apply(exp)
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	for _, entry := range all {
		if entry.ExpansionError != "" {
			failed++
		}
	}
	if failed > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, h.env.logger("stage.scene_plan")), "scene expansion incomplete", "scene_expansion_failed",
			logging.Int("failed", failed),
			logging.Int("total", len(all)),
			logging.String(logging.FieldImpact, "affected scenes keep only their summary"),
		)
	}
}

func (h *scenePlanHandler) expandOne(ctx context.Context, entry sceneplan.Entry, vars prompts.Vars) (sceneplan.Expansion, error) {
	system, prompt, err := h.env.Catalog.Render(prompts.ScenePlanExpand, vars.Merge(prompts.Vars{
		"ID":         entry.ID,
		"SceneTitle": entry.Title,
		"Summary":    entry.Summary,
		"Characters": []string(entry.Characters),
	}))
	if err != nil {
		return sceneplan.Expansion{}, err
	}
	text, err := llm.CompleteJSON(services.WithSceneID(ctx, entry.ID), h.env.Provider, system, prompt)
	if err != nil {
		return sceneplan.Expansion{}, err
	}
	exp, err := sceneplan.ParseExpansion(text)
	if err != nil {
		return sceneplan.Expansion{}, err
	}
	if exp.Empty() {
		return exp, errors.New("empty scene card")
	}
	return exp, nil
}
