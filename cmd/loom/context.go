package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/project"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	batchFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, batchFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		batchFlag:    batchFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.batch() {
			cfg.SetInteractive(false)
		}
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) batch() bool {
	return c.batchFlag != nil && *c.batchFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withIndex opens the run index for the duration of fn.
func (c *commandContext) withIndex(fn func(*config.Config, *project.Index) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	index, err := project.OpenIndex(cfg)
	if err != nil {
		return err
	}
	defer index.Close()
	return fn(cfg, index)
}

// loadRun resolves runID against runs_dir and reads its snapshot without
// taking the run lock.
func (c *commandContext) loadRun(runID string) (*config.Config, *project.State, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	dir, err := project.ResolveRunDir(cfg.Paths.RunsDir, runID)
	if err != nil {
		return nil, nil, err
	}
	state, err := project.LoadState(dir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, state, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
