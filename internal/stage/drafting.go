package stage

import (
	"context"
	"fmt"
	"time"

	"loom/internal/logging"
	"loom/internal/project"
	"loom/internal/services"
	"loom/internal/workflow"
)

const fallbackSummaryRunes = 400

type draftingHandler struct {
	env *Env
}

func (h *draftingHandler) Name() string { return string(project.PhaseDrafting) }

func (h *draftingHandler) HealthCheck(context.Context) Health {
	health := generationHealth(h.Name(), h.env)
	if health.Ready && h.env.Engine == nil {
		return Unhealthy(h.Name(), "workflow engine not configured")
	}
	return health
}

// Run drafts every pending scene in depth-first order, summarizes it, and
// lets memory archive older summaries. Completed scenes with content on
// disk are skipped, so the phase resumes where it stopped.
func (h *draftingHandler) Run(ctx context.Context, state *project.State) error {
	logger := logging.WithContext(ctx, h.env.logger("stage.drafting"))
	if state.SceneCount() == 0 {
		return services.Wrap(services.ErrMissingDependency, h.Name(), "load scenes",
			"scene plan has no scenes; run scene_plan first", nil)
	}

	var nodes []*project.SceneNode
	state.Walk(func(node *project.SceneNode) bool {
		nodes = append(nodes, node)
		return true
	})

	drafted := 0
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if node.Status == project.SceneDone {
			if workflow.SceneText(node.ContentPath) != "" {
				continue
			}
			logging.WarnWithContext(logger, "completed scene lost its content", "scene_reset",
				logging.SceneID(node.ID),
				logging.String(logging.FieldImpact, "scene will be drafted again"),
			)
			node.Status = project.ScenePending
		}

		sceneCtx := services.WithSceneID(ctx, node.ID)
		if err := h.draftWithRetry(sceneCtx, node); err != nil {
			return err
		}
		h.summarize(sceneCtx, node)
		if err := h.env.persist(ctx, state); err != nil {
			return err
		}
		if h.env.Memory != nil {
			mem := h.env.Config.Memory
			if err := h.env.Memory.Consolidate(sceneCtx, node.ID, mem.WindowSize, mem.BatchSize); err != nil {
				logging.WarnWithContext(logger, "memory consolidation failed", "consolidation_failed",
					logging.SceneID(node.ID),
					logging.Error(err),
					logging.String(logging.FieldImpact, "recency window grows until the next successful consolidation"),
				)
			}
		}
		drafted++
	}
	logger.Info("drafting complete",
		logging.String(logging.FieldEventType, "drafting_complete"),
		logging.Int("drafted", drafted),
		logging.Int("scenes", len(nodes)),
	)
	return nil
}

func (h *draftingHandler) draftWithRetry(ctx context.Context, node *project.SceneNode) error {
	logger := logging.WithContext(ctx, h.env.logger("stage.drafting"))
	attempts := max(1, h.env.Config.Workflow.DraftRetries)
	backoff := time.Duration(h.env.Config.Workflow.RetryBackoffSeconds) * time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := h.env.Engine.ProcessScene(ctx, node)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.WarnWithContext(logger, "scene drafting failed", "draft_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
			logging.String(logging.FieldImpact, "scene is retried after a cooldown"),
		)
		if attempt < attempts {
			if err := h.env.sleep(ctx, backoff); err != nil {
				return err
			}
		}
	}
	return services.Wrap(services.ErrExternalTool, h.Name(), fmt.Sprintf("draft scene %d", node.ID),
		fmt.Sprintf("giving up after %d attempts", attempts), lastErr)
}

// summarize fills node.Summary. A failed summary falls back to the opening
// of the scene so memory never sees an empty entry for a drafted node.
func (h *draftingHandler) summarize(ctx context.Context, node *project.SceneNode) {
	text := workflow.SceneText(node.ContentPath)
	if h.env.Summarizer != nil {
		summary, err := h.env.Summarizer.Summarize(ctx, text)
		if err == nil && summary != "" {
			node.Summary = summary
			return
		}
		logging.WarnWithContext(logging.WithContext(ctx, h.env.logger("stage.drafting")), "scene summary failed", "summary_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "scene opening used as summary"),
		)
	}
	node.Summary = truncateRunes(text, fallbackSummaryRunes)
}
