package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/project"
)

const statusCheckpoints = 5

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "List runs, or show one run's phase and scene tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return ctx.withIndex(func(_ *config.Config, index *project.Index) error {
					runs, err := index.ListRuns(cmd.Context())
					if err != nil {
						return err
					}
					items := runListItems(runs)
					if jsonOutput {
						return writeJSON(cmd, items)
					}
					if len(items) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No runs yet. Start one with `loom run`.")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderRunList(items))
					return nil
				})
			}

			_, state, err := ctx.loadRun(args[0])
			if err != nil {
				return err
			}
			detail := buildRunDetail(state)
			_ = ctx.withIndex(func(_ *config.Config, index *project.Index) error {
				checkpoints, err := index.Checkpoints(cmd.Context(), state.RunID, statusCheckpoints)
				if err != nil {
					return err
				}
				for _, cp := range checkpoints {
					detail.Checkpoints = append(detail.Checkpoints, checkpointRow{
						Phase:      string(cp.Phase),
						Drafted:    cp.ScenesDone,
						Scenes:     cp.SceneCount,
						RecordedAt: cp.RecordedAt,
					})
				}
				return nil
			})
			if jsonOutput {
				return writeJSON(cmd, detail)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRunDetail(detail))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "candidates <run-id> <step>",
		Short: "List cached candidates for ideation, outline, bible, or scene_plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, ok := project.ParseStep(args[1])
			if !ok {
				return fmt.Errorf("unknown step %q (valid: ideation, outline, bible, scene_plan)", args[1])
			}
			_, state, err := ctx.loadRun(args[0])
			if err != nil {
				return err
			}
			rows := candidateRows(state.CandidatesFor(step))
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s candidates for run %s\n", step, state.RunID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCandidates(step, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
