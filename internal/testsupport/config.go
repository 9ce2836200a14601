package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It uses the mock provider, headless auto selection, and no notifications,
// then applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RunsDir = filepath.Join(base, "runs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.LLM.Provider = config.ProviderMock
	cfgVal.LLM.RequestsPerMinute = 0
	cfgVal.Workflow.Interactive = false
	cfgVal.Workflow.SelectionMode = config.SelectionAuto
	cfgVal.Workflow.RetryBackoffSeconds = 0
	cfgVal.Notifications.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBranching enables branching with n candidates per scene.
func WithBranching(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.BranchingEnabled = true
		b.cfg.Workflow.NumCandidates = n
	}
}

// WithMemory overrides the sliding window sizes.
func WithMemory(window, batch int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Memory.WindowSize = window
		b.cfg.Memory.BatchSize = batch
	}
}

// WithManualSelection enables the operator loop for selections.
func WithManualSelection() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Interactive = true
		b.cfg.Workflow.SelectionMode = config.SelectionManual
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RunsDir)
}
