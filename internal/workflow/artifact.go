package workflow

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/logging"
	"loom/internal/project"
)

// RunStepWithHITL ensures candidates exist for step, lets the operator pick
// one (or picks the first when headless), marks exactly that candidate
// selected, and persists.
func (e *Engine) RunStepWithHITL(ctx context.Context, step project.Step, generate GenerateFunc) (*project.ArtifactCandidate, error) {
	logger := logging.WithContext(ctx, e.logger).With(logging.String("step", string(step)))

	if len(e.state.CandidatesFor(step)) == 0 {
		if err := e.generateArtifacts(ctx, step, generate); err != nil {
			return nil, err
		}
		logger.Info("candidates generated",
			logging.String(logging.FieldEventType, "candidates_generated"),
			logging.Int("count", len(e.state.CandidatesFor(step))),
		)
	}

	index := 0
	if e.interactive() {
		set := &artifactChoices{engine: e, step: step, generate: generate}
		chosen, err := e.choose(ctx, fmt.Sprintf("%s candidates", strings.ToUpper(string(step))), set)
		if err != nil {
			return nil, err
		}
		index = chosen
	}

	candidates := e.state.CandidatesFor(step)
	if index < 0 || index >= len(candidates) {
		return nil, ErrNoCandidates
	}
	for i := range candidates {
		candidates[i].Selected = i == index
	}
	e.state.SetCandidates(step, candidates)
	if err := e.persist(ctx); err != nil {
		return nil, err
	}
	selected := candidates[index]
	logger.Info("candidate selected",
		logging.String(logging.FieldEventType, "candidate_selected"),
		logging.CandidateID(selected.ID),
	)
	return &selected, nil
}

func (e *Engine) generateArtifacts(ctx context.Context, step project.Step, generate GenerateFunc) error {
	if generate == nil {
		return fmt.Errorf("%s: %w", step, ErrNoCandidates)
	}
	texts, err := generate(ctx)
	if err != nil {
		return fmt.Errorf("%s: generate candidates: %w", step, err)
	}
	candidates := make([]project.ArtifactCandidate, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		candidates = append(candidates, project.ArtifactCandidate{
			ID:      fmt.Sprintf("v%d", len(candidates)+1),
			Content: text,
		})
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%s: %w", step, ErrNoCandidates)
	}
	e.state.SetCandidates(step, candidates)
	return e.persist(ctx)
}

type artifactChoices struct {
	engine   *Engine
	step     project.Step
	generate GenerateFunc
}

func (a *artifactChoices) list() []project.ArtifactCandidate {
	return a.engine.state.CandidatesFor(a.step)
}

func (a *artifactChoices) Len() int { return len(a.list()) }

func (a *artifactChoices) Label(i int) string {
	candidate := a.list()[i]
	return fmt.Sprintf("%s: %s", candidate.ID, preview(candidate.Content))
}

func (a *artifactChoices) Content(i int) (string, error) {
	return a.list()[i].Content, nil
}

func (a *artifactChoices) Replace(ctx context.Context, i int, text string) error {
	candidates := a.list()
	candidates[i].Content = text
	a.engine.state.SetCandidates(a.step, candidates)
	return a.engine.persist(ctx)
}

func (a *artifactChoices) Reroll(ctx context.Context) error {
	a.engine.state.SetCandidates(a.step, nil)
	return a.engine.generateArtifacts(ctx, a.step, a.generate)
}

func (a *artifactChoices) Add(ctx context.Context, text string) error {
	candidates := a.list()
	ids := make([]string, len(candidates))
	for i, candidate := range candidates {
		ids[i] = candidate.ID
	}
	candidates = append(candidates, project.ArtifactCandidate{ID: nextUploadID(ids), Content: text})
	a.engine.state.SetCandidates(a.step, candidates)
	return a.engine.persist(ctx)
}
