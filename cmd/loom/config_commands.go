package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/prompts"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the loom configuration",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample config with story, memory, and branching defaults",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveConfigTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n\n", target)
			fmt.Fprintln(out, "Before the first run:")
			fmt.Fprintln(out, "  [content]   set title, genre, and target_words for the story")
			fmt.Fprintln(out, "  [llm]       set api_key or export OPENROUTER_API_KEY; provider = \"mock\" works offline")
			fmt.Fprintln(out, "  [memory]    window_size scenes stay verbatim; batch_size scenes fold into one arc")
			fmt.Fprintln(out, "  [workflow]  branching_enabled and num_candidates control drafts per scene")
			fmt.Fprintf(out, "\nCheck it with: loom config validate --config %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func resolveConfigTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

// newConfigValidateCommand loads the config the way a run would, compiles
// the prompt catalog it points at, and prints the settings that shape a
// story run.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the config and prompt catalog and summarize the run settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			catalog, err := prompts.Load(cfg.Paths.PromptsFile)
			if err != nil {
				return fmt.Errorf("load prompts: %w", err)
			}

			out := cmd.OutOrStdout()
			if !exists {
				fmt.Fprintf(out, "No config at %s; defaults were used\n", resolved)
			}
			writeConfigSummary(out, cfg, resolved, len(catalog.Names()))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func writeConfigSummary(out io.Writer, cfg *config.Config, path string, templates int) {
	promptSource := "built-in"
	if cfg.Paths.PromptsFile != "" {
		promptSource = cfg.Paths.PromptsFile
	}
	branching := "off"
	if cfg.Workflow.BranchingEnabled && cfg.Workflow.NumCandidates > 1 {
		branching = fmt.Sprintf("%d candidates, %s selection", cfg.Workflow.NumCandidates, cfg.Workflow.SelectionMode)
	}
	scenes := "-"
	if cfg.Content.AvgSceneWords > 0 {
		scenes = strconv.Itoa(max(1, cfg.Content.TargetWords/cfg.Content.AvgSceneWords))
	}
	rows := [][]string{
		{"Config", path},
		{"Story", fmt.Sprintf("%q (%s)", cfg.Content.Title, cfg.Content.Genre)},
		{"Planned scenes", scenes},
		{"Provider", fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.LLM.Model)},
		{"Runs dir", cfg.Paths.RunsDir},
		{"Prompts", fmt.Sprintf("%s, %d templates", promptSource, templates)},
		{"Memory", fmt.Sprintf("window %d, archive %d per arc", cfg.Memory.WindowSize, cfg.Memory.BatchSize)},
		{"Branching", branching},
		{"Interactive", yesNo(cfg.Workflow.Interactive)},
	}
	fmt.Fprintln(out, renderTable("Configuration", []string{"Setting", "Value"}, rows, nil))
}
