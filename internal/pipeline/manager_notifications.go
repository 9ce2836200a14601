package pipeline

import (
	"context"
	"errors"
	"strings"

	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/project"
	"loom/internal/services"
)

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WithContext(ctx, m.logger).Debug("notification failed",
			logging.String(logging.FieldEventType, string(event)),
			logging.Error(err),
		)
	}
}

func (m *Manager) onPhaseCompleted(ctx context.Context, completed, next project.Phase) {
	m.publish(ctx, notifications.EventPhaseCompleted, notifications.Payload{
		"run_id": m.state.RunID,
		"phase":  string(completed),
		"next":   string(next),
	})
	if next == project.PhaseDone {
		m.publish(ctx, notifications.EventRunCompleted, notifications.Payload{
			"run_id":      m.state.RunID,
			"export_path": m.state.ExportPath,
		})
	}
}

func (m *Manager) onRollback(ctx context.Context, from, to project.Phase) {
	m.publish(ctx, notifications.EventRollback, notifications.Payload{
		"run_id": m.state.RunID,
		"from":   string(from),
		"to":     string(to),
	})
}

// handleFailure logs a failed phase with its classification and tells the
// operator what to do next.
func (m *Manager) handleFailure(ctx context.Context, current project.Phase, err error) {
	logger := logging.WithContext(ctx, m.logger)
	details := services.Details(err)
	logging.ErrorWithContext(logger, "phase failed", "phase_failure",
		logging.Alert("phase_failure"),
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(err),
	)

	if errors.Is(err, services.ErrMissingDependency) {
		m.publish(ctx, notifications.EventMissingDependency, notifications.Payload{
			"run_id":     m.state.RunID,
			"phase":      string(current),
			"dependency": dependencyName(err),
		})
		return
	}
	m.publish(ctx, notifications.EventPhaseFailed, notifications.Payload{
		"run_id": m.state.RunID,
		"phase":  string(current),
		"error":  strings.TrimSpace(err.Error()),
		"hint":   details.Hint,
	})
}

// dependencyName pulls "X" out of a "X not found (...)" detail, falling
// back to the whole message.
func dependencyName(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, " not found"); idx > 0 {
		head := msg[:idx]
		if colon := strings.LastIndex(head, ": "); colon >= 0 {
			head = head[colon+2:]
		}
		if name := strings.TrimSpace(head); name != "" {
			return name
		}
	}
	return msg
}
