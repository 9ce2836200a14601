// Package stage holds one handler per pipeline phase. Handlers read the
// run's artifacts, call the provider through the workflow engine, write
// their outputs, and update state; the pipeline manager owns phase
// transitions.
package stage

import (
	"context"
	"log/slog"
	"time"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/memory"
	"loom/internal/notifications"
	"loom/internal/project"
	"loom/internal/prompts"
	"loom/internal/services/llm"
	"loom/internal/storage"
	"loom/internal/workflow"
)

// Handler runs one phase.
type Handler interface {
	Name() string
	Run(ctx context.Context, state *project.State) error
	HealthCheck(ctx context.Context) Health
}

// Summarizer condenses drafted scene text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Env carries the collaborators shared by every handler of a run.
type Env struct {
	Config     *config.Config
	Engine     *workflow.Engine
	Store      *storage.Store
	Provider   llm.Provider
	Catalog    *prompts.Catalog
	Memory     *memory.Manager
	Summarizer Summarizer
	Persister  project.Persister
	Notifier   notifications.Service
	Logger     *slog.Logger
	// Sleep waits between drafting retries. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (e *Env) vars() prompts.Vars {
	return prompts.ContentVars(e.Config.Content)
}

func (e *Env) logger(component string) *slog.Logger {
	return logging.NewComponentLogger(e.Logger, component)
}

func (e *Env) persist(ctx context.Context, state *project.State) error {
	if e.Persister == nil {
		return nil
	}
	return e.Persister.Save(ctx, state)
}

func (e *Env) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Publish(ctx, event, payload); err != nil {
		e.Logger.Debug("notification failed", logging.String(logging.FieldEventType, string(event)), logging.Error(err))
	}
}

func (e *Env) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Handlers returns the handler registry for every runnable phase.
func Handlers(env *Env) map[project.Phase]Handler {
	if env.Logger == nil {
		env.Logger = logging.NewNop()
	}
	return map[project.Phase]Handler{
		project.PhaseInit:      &initHandler{env: env},
		project.PhaseIdeation:  newIdeation(env),
		project.PhaseOutline:   newOutline(env),
		project.PhaseBible:     newBible(env),
		project.PhaseScenePlan: &scenePlanHandler{env: env},
		project.PhaseDrafting:  &draftingHandler{env: env},
		project.PhaseReview:    &reviewHandler{env: env},
		project.PhaseExport:    &exportHandler{env: env},
	}
}

type initHandler struct {
	env *Env
}

func (h *initHandler) Name() string { return "init" }

func (h *initHandler) Run(ctx context.Context, state *project.State) error {
	if state.Title == "" {
		state.Title = h.env.Config.Content.Title
	}
	return h.env.persist(ctx, state)
}

func (h *initHandler) HealthCheck(context.Context) Health { return Healthy(h.Name()) }
