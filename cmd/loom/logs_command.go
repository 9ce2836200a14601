package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"loom/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var trace bool

	cmd := &cobra.Command{
		Use:   "logs <run-id>",
		Short: "Display a run's log or LLM trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, state, err := ctx.loadRun(args[0])
			if err != nil {
				return err
			}
			path := filepath.Join(state.RunDir, "logs", "run.log")
			if trace {
				path = filepath.Join(state.RunDir, "logs", traceFileName)
			}

			var chunk logs.Chunk
			if lines == 0 {
				chunk, err = logs.ReadFrom(path, 0)
			} else {
				chunk, err = logs.Tail(path, lines)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			emit := func(batch []string) error {
				for _, line := range batch {
					if _, err := fmt.Fprintln(out, line); err != nil {
						return err
					}
				}
				return nil
			}
			if err := emit(chunk.Lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			followCtx, cancel := signalContext(cmd.Context())
			defer cancel()
			return logs.Follow(followCtx, path, chunk.Offset, 0, emit)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show the LLM request trace instead of run.log")
	return cmd
}
