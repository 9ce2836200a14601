package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"loom/internal/logging"
	"loom/internal/phase"
	"loom/internal/project"
	"loom/internal/qc"
	"loom/internal/services"
)

// ErrNoHandler indicates a phase without a registered handler.
var ErrNoHandler = errors.New("no handler for phase")

func (m *Manager) phaseContext(ctx context.Context, current project.Phase) context.Context {
	ctx = services.WithRunID(ctx, m.state.RunID)
	ctx = services.WithPhase(ctx, string(current))
	return services.WithRequestID(ctx, uuid.NewString())
}

// RunPhase executes the current phase and advances to its successor. A
// failed phase is left in place. A review that reset scenes with
// qc.rollback_on_reset set moves the run back to drafting instead.
func (m *Manager) RunPhase(ctx context.Context) error {
	current := m.state.Phase
	if current == project.PhaseDone {
		m.logger.Info("run already complete", logging.String(logging.FieldEventType, "run_complete"))
		return nil
	}
	handler, ok := m.handlers[current]
	if !ok || handler == nil {
		err := fmt.Errorf("%w: %s", ErrNoHandler, current)
		m.setLastError(current, err)
		return err
	}

	ctx = m.phaseContext(ctx, current)
	logger := logging.WithContext(ctx, m.logger)
	start := time.Now()
	logger.Info("phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.String("handler", handler.Name()),
	)

	if err := handler.Run(ctx, m.state); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("phase interrupted")
			return err
		}
		if errors.Is(err, qc.ErrNeedsRedraft) {
			return m.redraft(ctx, current)
		}
		m.handleFailure(ctx, current, err)
		m.setLastError(current, err)
		return err
	}

	next, ok := phase.Next(current)
	if !ok {
		m.setLastError(current, nil)
		return nil
	}
	if err := m.machine.TransitionTo(ctx, next, false); err != nil {
		m.setLastError(current, err)
		return err
	}
	logger.Info("phase completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.String("next_phase", string(next)),
		logging.Duration("phase_duration", time.Since(start)),
	)
	m.setLastError(current, nil)
	m.onPhaseCompleted(ctx, current, next)
	return nil
}

// RunAuto runs phases until the run is done, a phase fails, or maxSteps
// phases have executed. maxSteps <= 0 means no limit.
func (m *Manager) RunAuto(ctx context.Context, maxSteps int) error {
	for steps := 0; m.state.Phase != project.PhaseDone; steps++ {
		if maxSteps > 0 && steps >= maxSteps {
			m.logger.Info("auto step limit reached",
				logging.String(logging.FieldEventType, "auto_limit"),
				logging.Int("max_steps", maxSteps),
				logging.String(logging.FieldPhase, string(m.state.Phase)),
			)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.RunPhase(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Step forces the run into target and executes it.
func (m *Manager) Step(ctx context.Context, target project.Phase) error {
	from := m.state.Phase
	if err := m.machine.TransitionTo(ctx, target, true); err != nil {
		return err
	}
	if from != target {
		m.logger.Info("phase forced",
			logging.String(logging.FieldEventType, "phase_forced"),
			logging.String("from", string(from)),
			logging.String("to", string(target)),
		)
	}
	return m.RunPhase(ctx)
}

// Rollback moves the run back to target. Targets outside the transition
// table are forced only after the operator confirms (assumeYes skips the
// prompt). It does not run the target phase.
func (m *Manager) Rollback(ctx context.Context, target project.Phase, assumeYes bool) error {
	from := m.state.Phase
	err := m.machine.TransitionTo(ctx, target, false)
	if errors.Is(err, phase.ErrIllegalTransition) {
		confirmed := assumeYes
		if !confirmed {
			prompt := fmt.Sprintf("%s is not a direct rollback from %s. Force it?", target, from)
			var askErr error
			confirmed, askErr = m.ui.Confirm(prompt, false)
			if askErr != nil {
				return fmt.Errorf("confirm rollback: %w", askErr)
			}
		}
		if !confirmed {
			return err
		}
		err = m.machine.TransitionTo(ctx, target, true)
	}
	if err != nil {
		return err
	}
	m.onRollback(m.phaseContext(ctx, target), from, target)
	return nil
}

func (m *Manager) redraft(ctx context.Context, current project.Phase) error {
	logger := logging.WithContext(ctx, m.logger)
	if err := m.machine.TransitionTo(ctx, project.PhaseDrafting, false); err != nil {
		m.setLastError(current, err)
		return err
	}
	logging.WarnWithContext(logger, "review reset scenes, returning to drafting", "qc_rollback",
		logging.String(logging.FieldImpact, "reset scenes are drafted again before export"),
		logging.String(logging.FieldErrorHint, "check why scene files went missing"),
	)
	m.setLastError(current, nil)
	m.onRollback(ctx, current, project.PhaseDrafting)
	return nil
}
