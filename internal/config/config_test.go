package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"loom/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("LOOM_LLM_API_KEY", "")
	os.Unsetenv("LOOM_LLM_API_KEY")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRuns := filepath.Join(tempHome, ".local", "share", "loom", "runs")
	if cfg.Paths.RunsDir != wantRuns {
		t.Fatalf("unexpected runs dir: got %q want %q", cfg.Paths.RunsDir, wantRuns)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Provider != config.ProviderOpenRouter {
		t.Fatalf("unexpected provider: %q", cfg.LLM.Provider)
	}
	if cfg.Memory.WindowSize != 10 || cfg.Memory.BatchSize != 5 {
		t.Fatalf("unexpected memory defaults: %+v", cfg.Memory)
	}
	if cfg.Workflow.DraftRetries != 3 || cfg.Workflow.RetryBackoffSeconds != 5 {
		t.Fatalf("unexpected drafting retry defaults: %+v", cfg.Workflow)
	}
	if !cfg.Workflow.Interactive {
		t.Fatal("expected interactive mode by default")
	}
	if cfg.Workflow.SelectionMode != config.SelectionManual {
		t.Fatalf("expected manual selection to follow interactive default, got %q", cfg.Workflow.SelectionMode)
	}
	if cfg.IndexPath() != filepath.Join(wantRuns, "loom.db") {
		t.Fatalf("unexpected index path: %q", cfg.IndexPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.RunsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "loom.toml")

	type payload struct {
		Paths struct {
			RunsDir string `toml:"runs_dir"`
		} `toml:"paths"`
		LLM struct {
			Provider string `toml:"provider"`
		} `toml:"llm"`
		Workflow struct {
			Interactive      bool `toml:"interactive"`
			BranchingEnabled bool `toml:"branching_enabled"`
			NumCandidates    int  `toml:"num_candidates"`
		} `toml:"workflow"`
		Memory struct {
			WindowSize int `toml:"window_size"`
			BatchSize  int `toml:"batch_size"`
		} `toml:"memory"`
		Content struct {
			Title string   `toml:"title"`
			Tags  []string `toml:"tags"`
		} `toml:"content"`
	}
	custom := payload{}
	custom.Paths.RunsDir = filepath.Join(tempDir, "runs")
	custom.LLM.Provider = "MOCK"
	custom.Workflow.Interactive = false
	custom.Workflow.BranchingEnabled = true
	custom.Workflow.NumCandidates = 4
	custom.Memory.WindowSize = 6
	custom.Memory.BatchSize = 3
	custom.Content.Title = "  The Long Fall  "
	custom.Content.Tags = []string{"noir", " noir ", "", "rain"}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.LLM.Provider != config.ProviderMock {
		t.Fatalf("expected provider to be normalized to mock, got %q", cfg.LLM.Provider)
	}
	if cfg.Workflow.SelectionMode != config.SelectionAuto {
		t.Fatalf("expected auto selection when not interactive, got %q", cfg.Workflow.SelectionMode)
	}
	if cfg.ManualSelection() {
		t.Fatal("expected ManualSelection to be false")
	}
	if cfg.Workflow.NumCandidates != 4 || !cfg.Workflow.BranchingEnabled {
		t.Fatalf("unexpected workflow: %+v", cfg.Workflow)
	}
	if cfg.Memory.WindowSize != 6 || cfg.Memory.BatchSize != 3 {
		t.Fatalf("unexpected memory: %+v", cfg.Memory)
	}
	if cfg.Content.Title != "The Long Fall" {
		t.Fatalf("expected trimmed title, got %q", cfg.Content.Title)
	}
	if strings.Join(cfg.Content.Tags, ",") != "noir,rain" {
		t.Fatalf("unexpected tags: %v", cfg.Content.Tags)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "missing api key",
			mutate: func(c *config.Config) { c.LLM.Provider = config.ProviderOpenRouter; c.LLM.APIKey = "" },
			want:   "llm.api_key",
		},
		{
			name:   "unknown provider",
			mutate: func(c *config.Config) { c.LLM.Provider = "carrier-pigeon" },
			want:   "llm.provider",
		},
		{
			name:   "batch larger than window",
			mutate: func(c *config.Config) { c.Memory.WindowSize = 4; c.Memory.BatchSize = 5 },
			want:   "memory.batch_size",
		},
		{
			name:   "zero window",
			mutate: func(c *config.Config) { c.Memory.WindowSize = 0 },
			want:   "memory.window_size",
		},
		{
			name:   "zero candidates",
			mutate: func(c *config.Config) { c.Workflow.NumCandidates = 0 },
			want:   "workflow.num_candidates",
		},
		{
			name: "manual selection without operator",
			mutate: func(c *config.Config) {
				c.Workflow.Interactive = false
				c.Workflow.SelectionMode = config.SelectionManual
			},
			want: "selection_mode",
		},
		{
			name:   "repeat ratio out of range",
			mutate: func(c *config.Config) { c.QC.RepeatRatioWarn = 1.5 },
			want:   "qc.repeat_ratio_warn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.LLM.Provider = config.ProviderMock
			cfg.Workflow.SelectionMode = config.SelectionAuto
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSetInteractiveFalseForcesAutoSelection(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.SelectionMode = config.SelectionManual
	cfg.SetInteractive(false)
	if cfg.Workflow.SelectionMode != config.SelectionAuto {
		t.Fatalf("expected auto selection, got %q", cfg.Workflow.SelectionMode)
	}
}

func TestCreateSampleRoundTripsThroughLoad(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sample-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "cfg", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Memory.WindowSize != 10 || cfg.Memory.BatchSize != 5 {
		t.Fatalf("unexpected sample memory settings: %+v", cfg.Memory)
	}
	if cfg.Workflow.SelectionMode != config.SelectionManual {
		t.Fatalf("expected empty selection_mode to follow interactive, got %q", cfg.Workflow.SelectionMode)
	}
}

func TestEncodeRedactsAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "secret"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Fatalf("expected api key to be redacted: %s", data)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Fatal("Encode must not mutate the receiver")
	}
}
