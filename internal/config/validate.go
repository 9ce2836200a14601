package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateMemory(); err != nil {
		return err
	}
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validateQC(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderMock:
		return nil
	case ProviderOpenRouter:
	default:
		return fmt.Errorf("llm.provider must be %q or %q (got %q)", ProviderOpenRouter, ProviderMock, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/loom/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'loom config init')", defaultPath)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must be >= 0")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.num_candidates":       c.Workflow.NumCandidates,
		"workflow.draft_retries":        c.Workflow.DraftRetries,
		"workflow.max_auto_steps":       c.Workflow.MaxAutoSteps,
		"scene_plan.max_parallel":       c.ScenePlan.MaxParallel,
		"scene_plan.parse_retries":      c.ScenePlan.ParseRetries,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	switch c.Workflow.SelectionMode {
	case SelectionAuto, SelectionManual:
	default:
		return fmt.Errorf("workflow.selection_mode must be %q or %q", SelectionAuto, SelectionManual)
	}
	if c.Workflow.SelectionMode == SelectionManual && !c.Workflow.Interactive {
		return errors.New("workflow.selection_mode = \"manual\" requires workflow.interactive = true")
	}
	return nil
}

func (c *Config) validateMemory() error {
	if c.Memory.WindowSize <= 0 {
		return errors.New("memory.window_size must be positive")
	}
	if c.Memory.BatchSize <= 0 {
		return errors.New("memory.batch_size must be positive")
	}
	if c.Memory.BatchSize > c.Memory.WindowSize {
		return errors.New("memory.batch_size must not exceed memory.window_size")
	}
	return nil
}

func (c *Config) validateContent() error {
	if err := ensurePositiveMap(map[string]int{
		"content.target_words":        c.Content.TargetWords,
		"content.avg_scene_words":     c.Content.AvgSceneWords,
		"content.ideation_candidates": c.Content.IdeationCandidates,
		"content.outline_candidates":  c.Content.OutlineCandidates,
		"content.bible_candidates":    c.Content.BibleCandidates,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(c.Content.Genre) == "" {
		return errors.New("content.genre must be set")
	}
	return nil
}

func (c *Config) validateQC() error {
	if c.QC.RepeatRatioWarn <= 0 || c.QC.RepeatRatioWarn > 1 {
		return errors.New("qc.repeat_ratio_warn must be between 0 and 1")
	}
	if c.QC.SimilarityWarn <= 0 || c.QC.SimilarityWarn > 1 {
		return errors.New("qc.similarity_warn must be between 0 and 1")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
