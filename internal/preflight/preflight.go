package preflight

import (
	"context"
	"strings"

	"loom/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Local runs the checks that need no network access.
func Local(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Runs directory", cfg.Paths.RunsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckPrompts(cfg.Paths.PromptsFile),
	}
}

// RunAll executes Local plus every applicable network check.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := Local(cfg)
	if cfg.LLM.Provider != config.ProviderMock {
		results = append(results, CheckLLM(ctx, "LLM provider", cfg.GetLLM()))
	}
	if cfg.Notifications.Enabled && strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
