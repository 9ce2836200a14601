package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RunsDir     string `toml:"runs_dir"`
	LogDir      string `toml:"log_dir"`
	PromptsFile string `toml:"prompts_file"`
}

// LLM contains generation provider connection settings.
type LLM struct {
	Provider          string  `toml:"provider"`
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	Referer           string  `toml:"referer"`
	Title             string  `toml:"title"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxAttempts       int     `toml:"max_attempts"`
	RequestsPerMinute int     `toml:"requests_per_minute"`
	Temperature       float64 `toml:"temperature"`
	Stream            bool    `toml:"stream"`
}

// Workflow contains operator interaction and drafting settings.
type Workflow struct {
	// Interactive enables the operator loop. When false every choice falls
	// back to its default (first candidate, no revisions).
	Interactive bool `toml:"interactive"`
	// BranchingEnabled turns on concurrent candidate generation per scene.
	BranchingEnabled bool `toml:"branching_enabled"`
	NumCandidates    int  `toml:"num_candidates"`
	// SelectionMode is "auto" or "manual". Empty resolves from Interactive.
	SelectionMode       string `toml:"selection_mode"`
	DraftRetries        int    `toml:"draft_retries"`
	RetryBackoffSeconds int    `toml:"retry_backoff_seconds"`
	MaxAutoSteps        int    `toml:"max_auto_steps"`
}

// Memory controls sliding-window archival of scene summaries.
type Memory struct {
	WindowSize int `toml:"window_size"`
	BatchSize  int `toml:"batch_size"`
}

// Content describes the story being generated.
type Content struct {
	Title              string   `toml:"title"`
	Genre              string   `toml:"genre"`
	Tags               []string `toml:"tags"`
	TargetWords        int      `toml:"target_words"`
	AvgSceneWords      int      `toml:"avg_scene_words"`
	POV                string   `toml:"pov"`
	Tone               string   `toml:"tone"`
	IdeationCandidates int      `toml:"ideation_candidates"`
	OutlineCandidates  int      `toml:"outline_candidates"`
	BibleCandidates    int      `toml:"bible_candidates"`
}

// ScenePlan controls scene plan extraction and expansion.
type ScenePlan struct {
	MaxParallel  int `toml:"max_parallel"`
	ParseRetries int `toml:"parse_retries"`
}

// QC contains quality-check thresholds used by the review phase.
type QC struct {
	RepeatRatioWarn float64 `toml:"repeat_ratio_warn"`
	SimilarityWarn  float64 `toml:"similarity_warn"`
	RollbackOnReset bool    `toml:"rollback_on_reset"`
}

// Notifications contains operator notification settings.
type Notifications struct {
	Enabled        bool   `toml:"enabled"`
	Console        bool   `toml:"console"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Loom.
//
// Configuration sections by subsystem:
//   - Paths: run workspace, log, and prompt catalog locations
//   - LLM: generation provider connection and pacing
//   - Workflow: operator interaction, branching, drafting retries
//   - Memory: sliding-window archival sizes
//   - Content: story parameters fed into prompts
//   - ScenePlan: plan extraction and expansion
//   - QC: review thresholds
//   - Notifications: console and ntfy notifications
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Workflow      Workflow      `toml:"workflow"`
	Memory        Memory        `toml:"memory"`
	Content       Content       `toml:"content"`
	ScenePlan     ScenePlan     `toml:"scene_plan"`
	QC            QC            `toml:"qc"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the runs and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RunsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IndexPath returns the location of the sqlite run index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.RunsDir, "loom.db")
}

// ManualSelection reports whether branch winners are picked by the operator.
func (c *Config) ManualSelection() bool {
	return c.Workflow.SelectionMode == SelectionManual
}

// Encode renders the config as TOML. Used for per-run config snapshots.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "***"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the provider settings consumed by the llm service.
type LLMConfig struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	Referer           string
	Title             string
	TimeoutSeconds    int
	MaxAttempts       int
	RequestsPerMinute int
	Temperature       float64
	Stream            bool
}

// GetLLM returns the provider connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:          strings.TrimSpace(c.LLM.Provider),
		APIKey:            strings.TrimSpace(c.LLM.APIKey),
		BaseURL:           strings.TrimSpace(c.LLM.BaseURL),
		Model:             strings.TrimSpace(c.LLM.Model),
		Referer:           strings.TrimSpace(c.LLM.Referer),
		Title:             strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:    c.LLM.TimeoutSeconds,
		MaxAttempts:       c.LLM.MaxAttempts,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		Temperature:       c.LLM.Temperature,
		Stream:            c.LLM.Stream,
	}
}
