package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loom/internal/prompts"
)

// summaryInputLimit caps the scene text sent for summarization, in runes.
const summaryInputLimit = 6000

// Generator is the provider surface the consolidator needs.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// LLMConsolidator summarizes through the generation provider.
type LLMConsolidator struct {
	provider Generator
	catalog  *prompts.Catalog
	vars     prompts.Vars
}

// NewLLMConsolidator builds a consolidator. vars seeds every render, usually
// prompts.ContentVars.
func NewLLMConsolidator(provider Generator, catalog *prompts.Catalog, vars prompts.Vars) *LLMConsolidator {
	return &LLMConsolidator{provider: provider, catalog: catalog, vars: vars}
}

// ConsolidateSummaries implements Consolidator.
func (c *LLMConsolidator) ConsolidateSummaries(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return "", errors.New("no summaries to consolidate")
	}
	return c.run(ctx, prompts.Consolidate, c.vars.With("Summaries", summaries))
}

// Summarize compresses drafted scene text into a short plot summary.
func (c *LLMConsolidator) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if runes := []rune(text); len(runes) > summaryInputLimit {
		text = string(runes[:summaryInputLimit])
	}
	return c.run(ctx, prompts.Summarize, c.vars.With("Text", text))
}

func (c *LLMConsolidator) run(ctx context.Context, name string, vars prompts.Vars) (string, error) {
	system, prompt, err := c.catalog.Render(name, vars)
	if err != nil {
		return "", err
	}
	out, err := c.provider.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}
