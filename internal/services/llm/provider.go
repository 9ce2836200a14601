package llm

import (
	"context"
	"fmt"

	"loom/internal/config"
)

// Provider generates text from a system instruction and a user prompt.
type Provider interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Describer is implemented by providers that can report their identity for traces.
type Describer interface {
	Name() string
	Model() string
}

// HealthChecker is implemented by providers that can verify connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// JSONCompleter is implemented by providers with a JSON-object response mode.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, system, prompt string) (string, error)
}

// CompleteJSON requests a JSON object from p, using its JSON mode when it
// has one and plain generation otherwise.
func CompleteJSON(ctx context.Context, p Provider, system, prompt string) (string, error) {
	if jc, ok := p.(JSONCompleter); ok {
		return jc.CompleteJSON(ctx, system, prompt)
	}
	return p.Generate(ctx, system, prompt)
}

// NewProvider builds the provider selected by llm.provider.
func NewProvider(cfg config.LLMConfig, opts ...Option) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		return NewMock(), nil
	case config.ProviderOpenRouter, "":
		return NewClient(Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Referer:           cfg.Referer,
			Title:             cfg.Title,
			TimeoutSeconds:    cfg.TimeoutSeconds,
			MaxAttempts:       cfg.MaxAttempts,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Temperature:       cfg.Temperature,
			Stream:            cfg.Stream,
		}, opts...), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}
