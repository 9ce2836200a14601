package pipeline

import (
	"context"

	"loom/internal/phase"
	"loom/internal/project"
	"loom/internal/stage"
)

// StatusSummary is a snapshot of the run for display.
type StatusSummary struct {
	RunID       string
	Phase       project.Phase
	Allowed     []project.Phase
	Actions     []string
	Scenes      int
	Drafted     int
	LastPhase   project.Phase
	LastError   string
	StageHealth map[string]stage.Health
}

// Status reports the current phase, scene progress, and handler health.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	lastErr := m.lastErr
	lastPhase := m.lastPhase
	m.mu.RUnlock()

	summary := StatusSummary{
		RunID:       m.state.RunID,
		Phase:       m.state.Phase,
		Allowed:     phase.Allowed(m.state.Phase),
		Actions:     m.machine.AvailableActions(),
		LastPhase:   lastPhase,
		StageHealth: make(map[string]stage.Health, len(m.handlers)),
	}
	m.state.Walk(func(node *project.SceneNode) bool {
		summary.Scenes++
		if node.Status == project.SceneDone {
			summary.Drafted++
		}
		return true
	})
	for _, handler := range m.handlers {
		if handler == nil {
			continue
		}
		summary.StageHealth[handler.Name()] = handler.HealthCheck(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(p project.Phase, err error) {
	m.mu.Lock()
	m.lastPhase = p
	m.lastErr = err
	m.mu.Unlock()
}
