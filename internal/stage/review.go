package stage

import (
	"context"

	"loom/internal/export"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/project"
	"loom/internal/qc"
	"loom/internal/services"
)

type reviewHandler struct {
	env *Env
}

func (h *reviewHandler) Name() string { return string(project.PhaseReview) }

func (h *reviewHandler) HealthCheck(context.Context) Health {
	if h.env.Store == nil {
		return Unhealthy(h.Name(), "artifact store not available")
	}
	return Healthy(h.Name())
}

// Run writes the QC report. Scenes that lost their content are reset to
// pending; with qc.rollback_on_reset the handler returns qc.ErrNeedsRedraft
// so the driver can return to drafting.
func (h *reviewHandler) Run(ctx context.Context, state *project.State) error {
	logger := logging.WithContext(ctx, h.env.logger("stage.review"))
	report := qc.Run(state, h.env.Config.QC)
	path, err := qc.Save(h.env.Store, report)
	if err != nil {
		return err
	}
	if err := h.env.persist(ctx, state); err != nil {
		return err
	}
	logger.Info("qc report written",
		logging.String(logging.FieldEventType, "qc_report"),
		logging.String("verdict", report.Verdict),
		logging.Int("warnings", len(report.Warnings)),
		logging.Int("reset", len(report.Reset)),
		logging.String("path", path),
	)
	h.env.publish(ctx, notifications.EventQCReport, notifications.Payload{
		"run_id":  state.RunID,
		"verdict": report.Verdict,
		"scenes":  len(report.Scenes),
		"reset":   len(report.Reset),
	})

	if len(report.Reset) > 0 {
		h.env.publish(ctx, notifications.EventNeedsRedraft, notifications.Payload{
			"run_id": state.RunID,
			"reset":  len(report.Reset),
		})
		if h.env.Config.QC.RollbackOnReset {
			return qc.ErrNeedsRedraft
		}
	}
	if report.Verdict == qc.VerdictFail {
		return services.Wrap(services.ErrValidation, h.Name(), "qc", "no drafted scenes to review", nil)
	}
	return nil
}

type exportHandler struct {
	env *Env
}

func (h *exportHandler) Name() string { return string(project.PhaseExport) }

func (h *exportHandler) HealthCheck(context.Context) Health {
	if h.env.Store == nil {
		return Unhealthy(h.Name(), "artifact store not available")
	}
	return Healthy(h.Name())
}

func (h *exportHandler) Run(ctx context.Context, state *project.State) error {
	logger := logging.WithContext(ctx, h.env.logger("stage.export"))
	result, err := export.Compile(state, h.env.Store, h.env.Config.Content.Title)
	if err != nil {
		return services.Wrap(services.ErrValidation, h.Name(), "compile manuscript", "", err)
	}
	if err := h.env.persist(ctx, state); err != nil {
		return err
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "export_complete"),
		logging.String("path", result.Path),
		logging.Int("chapters", result.Chapters),
		logging.Int("words", result.Words),
	}
	if len(result.Skipped) > 0 {
		logging.WarnWithContext(logger, "scenes skipped in export", "export_skipped",
			logging.Any("scene_ids", result.Skipped),
			logging.String(logging.FieldImpact, "manuscript has gaps"),
			logging.String(logging.FieldErrorHint, "roll back to drafting to fill them"),
		)
	}
	logger.Info("manuscript exported", logging.Args(attrs...)...)
	return nil
}
