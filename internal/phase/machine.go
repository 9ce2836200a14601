package phase

import (
	"context"
	"errors"
	"fmt"

	"loom/internal/project"
)

// ErrIllegalTransition marks transitions outside the table.
var ErrIllegalTransition = errors.New("illegal phase transition")

// TransitionError describes a rejected transition.
type TransitionError struct {
	From    project.Phase
	To      project.Phase
	Allowed []project.Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s (allowed: %v)", e.From, e.To, e.Allowed)
}

// Is lets errors.Is match ErrIllegalTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// The first entry of every list is the forward edge used by auto-advance.
var transitions = map[project.Phase][]project.Phase{
	project.PhaseInit:      {project.PhaseIdeation},
	project.PhaseIdeation:  {project.PhaseOutline},
	project.PhaseOutline:   {project.PhaseBible, project.PhaseIdeation},
	project.PhaseBible:     {project.PhaseScenePlan, project.PhaseOutline},
	project.PhaseScenePlan: {project.PhaseDrafting, project.PhaseBible, project.PhaseOutline},
	project.PhaseDrafting:  {project.PhaseReview, project.PhaseScenePlan},
	project.PhaseReview:    {project.PhaseExport, project.PhaseDrafting},
	project.PhaseExport:    {project.PhaseDone, project.PhaseReview},
	project.PhaseDone:      {},
}

var actions = map[project.Phase][]string{
	project.PhaseInit:      {"start_ideation"},
	project.PhaseIdeation:  {"run_ideation", "finalize_ideation"},
	project.PhaseOutline:   {"run_outline", "finalize_outline", "back_to_ideation"},
	project.PhaseBible:     {"run_bible", "finalize_bible", "back_to_outline"},
	project.PhaseScenePlan: {"init_scenes", "finalize_scene_plan", "back_to_bible"},
	project.PhaseDrafting:  {"resume_drafting", "review_progress", "back_to_scene_plan"},
	project.PhaseReview:    {"run_qc", "finalize_review", "back_to_drafting"},
	project.PhaseExport:    {"run_export", "finalize_project", "back_to_review"},
	project.PhaseDone:      {"view_result", "back_to_export"},
}

// Allowed returns the phases reachable from p without forcing.
func Allowed(p project.Phase) []project.Phase {
	targets := transitions[p]
	out := make([]project.Phase, len(targets))
	copy(out, targets)
	return out
}

// Next returns the forward successor of p. DONE has none.
func Next(p project.Phase) (project.Phase, bool) {
	targets := transitions[p]
	if len(targets) == 0 {
		return "", false
	}
	return targets[0], true
}

// Actions returns the operator actions offered in p.
func Actions(p project.Phase) []string {
	list := actions[p]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Machine applies transitions to a run's state.
type Machine struct {
	state     *project.State
	persister project.Persister
}

// NewMachine binds a machine to state. Every successful transition is saved
// through persister.
func NewMachine(state *project.State, persister project.Persister) *Machine {
	return &Machine{state: state, persister: persister}
}

// Current returns the current phase.
func (m *Machine) Current() project.Phase {
	return m.state.Phase
}

// CanTransition reports whether target is in the current phase's allowed set.
func (m *Machine) CanTransition(target project.Phase) bool {
	for _, candidate := range transitions[m.state.Phase] {
		if candidate == target {
			return true
		}
	}
	return false
}

// AvailableActions returns the operator actions for the current phase.
func (m *Machine) AvailableActions() []string {
	return Actions(m.state.Phase)
}

// TransitionTo moves to target and persists. Unless force is set, target must
// be allowed from the current phase. On persist failure the previous phase is
// restored.
func (m *Machine) TransitionTo(ctx context.Context, target project.Phase, force bool) error {
	if _, ok := project.ParsePhase(string(target)); !ok {
		return fmt.Errorf("unknown phase %q", target)
	}
	from := m.state.Phase
	if !force && !m.CanTransition(target) {
		return &TransitionError{From: from, To: target, Allowed: Allowed(from)}
	}
	m.state.Phase = target
	if m.persister == nil {
		return nil
	}
	if err := m.persister.Save(ctx, m.state); err != nil {
		m.state.Phase = from
		return fmt.Errorf("persist transition %s -> %s: %w", from, target, err)
	}
	return nil
}
