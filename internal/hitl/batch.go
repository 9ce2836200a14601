package hitl

import (
	"log/slog"

	"loom/internal/logging"
)

// Batch answers every prompt with its default and logs notifications.
type Batch struct {
	logger *slog.Logger
}

// NewBatch returns a headless Interface.
func NewBatch(logger *slog.Logger) *Batch {
	return &Batch{logger: logging.NewComponentLogger(logger, "hitl")}
}

// Notify implements Interface.
func (b *Batch) Notify(title, message string, payload map[string]any) {
	attrs := []logging.Attr{logging.String("title", title)}
	if len(payload) > 0 {
		attrs = append(attrs, logging.Any("payload", payload))
	}
	b.logger.Info(message, logging.Args(attrs...)...)
}

// PromptInput returns def.
func (b *Batch) PromptInput(_, def string) (string, error) { return def, nil }

// PromptMultiline returns an empty string.
func (b *Batch) PromptMultiline(string) (string, error) { return "", nil }

// AskChoice returns the first option.
func (b *Batch) AskChoice(string, []string, []string) (int, error) { return 0, nil }

// Confirm returns def.
func (b *Batch) Confirm(_ string, def bool) (bool, error) { return def, nil }
