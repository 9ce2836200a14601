package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loom/internal/assembler"
	"loom/internal/logging"
	"loom/internal/project"
	"loom/internal/prompts"
)

// artifactHandler covers ideation, outline, and bible: generate candidates,
// run the operator step, and write both the full set and the selection.
type artifactHandler struct {
	env    *Env
	phase  project.Phase
	step   project.Step
	prompt string
	count  func() int
	// input, when set, is loaded into the template variable inputVar.
	inputName  string
	inputVar   string
	inputFiles []string
	allFile    string
	selected   string
	setPath    func(state *project.State, path string)
}

func newIdeation(env *Env) *artifactHandler {
	return &artifactHandler{
		env:      env,
		phase:    project.PhaseIdeation,
		step:     project.StepIdeation,
		prompt:   prompts.Ideation,
		count:    func() int { return env.Config.Content.IdeationCandidates },
		allFile:  assembler.IdeaFiles[1],
		selected: assembler.IdeaFiles[0],
		setPath:  func(s *project.State, p string) { s.IdeaPath = p },
	}
}

func newOutline(env *Env) *artifactHandler {
	return &artifactHandler{
		env:        env,
		phase:      project.PhaseOutline,
		step:       project.StepOutline,
		prompt:     prompts.Outline,
		count:      func() int { return env.Config.Content.OutlineCandidates },
		inputName:  "idea",
		inputVar:   "Idea",
		inputFiles: assembler.IdeaFiles,
		allFile:    assembler.OutlineFiles[1],
		selected:   assembler.OutlineFiles[0],
		setPath:    func(s *project.State, p string) { s.OutlinePath = p },
	}
}

func newBible(env *Env) *artifactHandler {
	return &artifactHandler{
		env:        env,
		phase:      project.PhaseBible,
		step:       project.StepBible,
		prompt:     prompts.Bible,
		count:      func() int { return env.Config.Content.BibleCandidates },
		inputName:  "outline",
		inputVar:   "Outline",
		inputFiles: assembler.OutlineFiles,
		allFile:    assembler.BibleFiles[1],
		selected:   assembler.BibleFiles[0],
		setPath:    func(s *project.State, p string) { s.BiblePath = p },
	}
}

func (h *artifactHandler) Name() string { return string(h.phase) }

func (h *artifactHandler) HealthCheck(context.Context) Health {
	return generationHealth(h.Name(), h.env)
}

func (h *artifactHandler) Run(ctx context.Context, state *project.State) error {
	logger := logging.WithContext(ctx, h.env.logger("stage."+h.Name()))
	vars := h.env.vars()
	if h.inputName != "" {
		input, err := requireArtifact(h.env, h.phase, h.inputName, h.inputFiles)
		if err != nil {
			return err
		}
		vars = vars.With(h.inputVar, input)
	}

	count := h.count()
	if count < 1 {
		count = 1
	}
	generateAll := func(ctx context.Context) ([]string, error) {
		var texts []string
		var failures []error
		for i := 0; i < count; i++ {
			text, err := generate(ctx, h.env, h.prompt, vars)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failures = append(failures, err)
				logging.WarnWithContext(logger, "candidate generation failed", "candidate_failed",
					logging.Int("attempt", i+1),
					logging.Error(err),
					logging.String(logging.FieldImpact, "fewer candidates to choose from"),
				)
				continue
			}
			texts = append(texts, text)
		}
		if len(texts) == 0 {
			return nil, errors.Join(failures...)
		}
		return texts, nil
	}

	selected, err := h.env.Engine.RunStepWithHITL(ctx, h.step, generateAll)
	if err != nil {
		return err
	}

	if _, err := h.env.Store.SaveText(h.allFile, renderCandidates(state.CandidatesFor(h.step))); err != nil {
		return err
	}
	path, err := h.env.Store.SaveText(h.selected, selected.Content+"\n")
	if err != nil {
		return err
	}
	h.setPath(state, path)
	if err := h.env.persist(ctx, state); err != nil {
		return err
	}
	logger.Info("artifact saved",
		logging.String(logging.FieldEventType, "artifact_saved"),
		logging.CandidateID(selected.ID),
		logging.String("path", path),
	)
	return nil
}

func renderCandidates(candidates []project.ArtifactCandidate) string {
	if len(candidates) == 1 {
		return candidates[0].Content + "\n"
	}
	var b strings.Builder
	for i, candidate := range candidates {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		marker := ""
		if candidate.Selected {
			marker = " (selected)"
		}
		fmt.Fprintf(&b, "## %s%s\n\n%s\n", candidate.ID, marker, candidate.Content)
	}
	return b.String()
}
