package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"loom/internal/assembler"
	"loom/internal/config"
	"loom/internal/hitl"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/project"
	"loom/internal/prompts"
	"loom/internal/services/llm"
	"loom/internal/storage"
)

var (
	// ErrNoCandidates indicates a step produced nothing to choose from.
	ErrNoCandidates = errors.New("no candidates generated")
	// ErrAllCandidatesFailed indicates every branch of a scene failed.
	ErrAllCandidatesFailed = errors.New("all branch candidates failed")
)

// Generator is the provider surface the engine needs.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GenerateFunc produces candidate texts for an artifact step.
type GenerateFunc func(ctx context.Context) ([]string, error)

// Drafter writes scene prose. The payload is passed explicitly and never
// stored on the node. Implementations must not mutate node; Draft is called
// concurrently for branches.
type Drafter interface {
	Draft(ctx context.Context, node *project.SceneNode, payload assembler.Payload) (string, error)
}

// Deps collects the engine collaborators.
type Deps struct {
	Persister project.Persister
	Store     *storage.Store
	Assembler *assembler.Assembler
	Provider  Generator
	Catalog   *prompts.Catalog
	UI        hitl.Interface
	Drafter   Drafter
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Engine coordinates artifact steps and scene drafting for one run.
type Engine struct {
	cfg       *config.Config
	state     *project.State
	persister project.Persister
	store     *storage.Store
	assembler *assembler.Assembler
	provider  Generator
	catalog   *prompts.Catalog
	ui        hitl.Interface
	drafter   Drafter
	notifier  notifications.Service
	logger    *slog.Logger
	vars      prompts.Vars
}

// NewEngine wires an engine. Missing optional collaborators fall back to
// batch interaction, a prompt-driven drafter, and no notifications.
func NewEngine(cfg *config.Config, state *project.State, deps Deps) *Engine {
	e := &Engine{
		cfg:       cfg,
		state:     state,
		persister: deps.Persister,
		store:     deps.Store,
		assembler: deps.Assembler,
		provider:  deps.Provider,
		catalog:   deps.Catalog,
		ui:        deps.UI,
		drafter:   deps.Drafter,
		notifier:  deps.Notifier,
		logger:    logging.NewComponentLogger(deps.Logger, "workflow"),
		vars:      prompts.ContentVars(cfg.Content),
	}
	if e.ui == nil {
		e.ui = hitl.NewBatch(deps.Logger)
	}
	if e.notifier == nil {
		e.notifier = notifications.Noop()
	}
	if e.assembler == nil && e.store != nil {
		e.assembler = assembler.New(state, e.store)
	}
	if e.drafter == nil {
		e.drafter = NewPromptDrafter(deps.Provider, deps.Catalog, e.vars)
	}
	return e
}

// State returns the run state the engine mutates.
func (e *Engine) State() *project.State { return e.state }

func (e *Engine) interactive() bool {
	return e.cfg.Workflow.Interactive && hitl.Interactive(e.ui)
}

func (e *Engine) persist(ctx context.Context) error {
	if e.persister == nil {
		return nil
	}
	if err := e.persister.Save(ctx, e.state); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// revise applies operator feedback to content in one provider round-trip.
func (e *Engine) revise(ctx context.Context, content, feedback string) (string, error) {
	if e.provider == nil || e.catalog == nil {
		return "", errors.New("revise: no provider configured")
	}
	vars := e.vars.Merge(prompts.Vars{"Feedback": feedback, "Content": content})
	system, prompt, err := e.catalog.Render(prompts.Revise, vars)
	if err != nil {
		return "", err
	}
	out, err := e.provider.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("revise: %w", err)
	}
	revised := llm.StripCodeFence(out)
	if revised == "" {
		return "", errors.New("revise: provider returned empty text")
	}
	return revised, nil
}

// PromptDrafter renders the drafting prompt from the payload.
type PromptDrafter struct {
	provider Generator
	catalog  *prompts.Catalog
	vars     prompts.Vars
}

// NewPromptDrafter returns a drafter backed by provider. vars seeds every
// render, usually prompts.ContentVars.
func NewPromptDrafter(provider Generator, catalog *prompts.Catalog, vars prompts.Vars) *PromptDrafter {
	return &PromptDrafter{provider: provider, catalog: catalog, vars: vars}
}

// Draft implements Drafter.
func (d *PromptDrafter) Draft(ctx context.Context, node *project.SceneNode, payload assembler.Payload) (string, error) {
	if d.provider == nil || d.catalog == nil {
		return "", errors.New("draft: no provider configured")
	}
	meta := payload.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	vars := d.vars.Merge(prompts.Vars{
		"Recency":       payload.Recency,
		"Outline":       payload.Outline,
		"Bible":         payload.Bible,
		"SceneID":       payload.SceneID,
		"SceneTitle":    payload.SceneTitle,
		"Preconditions": payload.Preconditions,
		"Meta":          meta,
	})
	system, prompt, err := d.catalog.Render(prompts.Drafting, vars)
	if err != nil {
		return "", err
	}
	out, err := d.provider.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("draft scene %d: %w", node.ID, err)
	}
	text := strings.TrimSpace(out)
	if text == "" {
		return "", fmt.Errorf("draft scene %d: provider returned empty text", node.ID)
	}
	return text, nil
}
