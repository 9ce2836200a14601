package project

import "strings"

// Phase is the coarse pipeline position persisted in state.json.
type Phase string

const (
	PhaseInit      Phase = "init"
	PhaseIdeation  Phase = "ideation"
	PhaseOutline   Phase = "outline"
	PhaseBible     Phase = "bible"
	PhaseScenePlan Phase = "scene_plan"
	PhaseDrafting  Phase = "drafting"
	PhaseReview    Phase = "review"
	PhaseExport    Phase = "export"
	PhaseDone      Phase = "done"
)

var allPhases = []Phase{
	PhaseInit,
	PhaseIdeation,
	PhaseOutline,
	PhaseBible,
	PhaseScenePlan,
	PhaseDrafting,
	PhaseReview,
	PhaseExport,
	PhaseDone,
}

// Phases returns every phase in pipeline order.
func Phases() []Phase {
	out := make([]Phase, len(allPhases))
	copy(out, allPhases)
	return out
}

// ParsePhase converts a string into a Phase. Matching ignores case and
// surrounding whitespace. Unknown values report false.
func ParsePhase(value string) (Phase, bool) {
	normalized := Phase(strings.ToLower(strings.TrimSpace(value)))
	for _, phase := range allPhases {
		if phase == normalized {
			return phase, true
		}
	}
	return "", false
}

// Step names a HITL artifact step whose candidates are cached in state.
type Step string

const (
	StepIdeation  Step = "ideation"
	StepOutline   Step = "outline"
	StepBible     Step = "bible"
	StepScenePlan Step = "scene_plan"
)

// ParseStep converts a string into a Step.
func ParseStep(value string) (Step, bool) {
	switch Step(strings.ToLower(strings.TrimSpace(value))) {
	case StepIdeation:
		return StepIdeation, true
	case StepOutline:
		return StepOutline, true
	case StepBible:
		return StepBible, true
	case StepScenePlan:
		return StepScenePlan, true
	}
	return "", false
}
