package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loom/internal/project"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// drive runs one phase, or loops when auto is set, and reports where the
// run stopped.
func drive(cmd *cobra.Command, ctx *commandContext, state *project.State, auto bool, maxSteps int, action func(context.Context, *session) error) error {
	runCtx, cancel := signalContext(cmd.Context())
	defer cancel()

	sess, err := openSession(runCtx, ctx, state, os.Stdin, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer sess.Close()

	if action == nil {
		action = func(c context.Context, s *session) error {
			if auto {
				if maxSteps <= 0 {
					maxSteps = s.cfg.Workflow.MaxAutoSteps
				}
				return s.manager.RunAuto(c, maxSteps)
			}
			return s.manager.RunPhase(c)
		}
	}
	runErr := action(runCtx, sess)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run: %s\n", state.RunID)
	fmt.Fprintf(out, "Phase: %s\n", state.Phase)
	if state.ExportPath != "" && state.Phase == project.PhaseDone {
		fmt.Fprintf(out, "Manuscript: %s\n", state.ExportPath)
	}
	return runErr
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var auto bool
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a new run and execute its first phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			state, err := project.CreateRun(cfg)
			if err != nil {
				return err
			}
			return drive(cmd, ctx, state, auto, maxSteps, nil)
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "Keep advancing until the run is done or a phase fails")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Limit phases executed with --auto (default workflow.max_auto_steps)")
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var auto bool
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue a run from its saved phase",
		Long:  "Resume loads a run by exact id or unique substring and continues from the phase stored in state.json.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, state, err := ctx.loadRun(args[0])
			if err != nil {
				return err
			}
			return drive(cmd, ctx, state, auto, maxSteps, nil)
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "Keep advancing until the run is done or a phase fails")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Limit phases executed with --auto (default workflow.max_auto_steps)")
	return cmd
}

func parsePhaseArg(value string) (project.Phase, error) {
	p, ok := project.ParsePhase(value)
	if !ok {
		return "", fmt.Errorf("unknown phase %q (valid: %v)", value, project.Phases())
	}
	return p, nil
}

func newStepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "step <run-id> <phase>",
		Short: "Jump to a phase and run it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parsePhaseArg(args[1])
			if err != nil {
				return err
			}
			_, state, err := ctx.loadRun(args[0])
			if err != nil {
				return err
			}
			return drive(cmd, ctx, state, false, 0, func(c context.Context, s *session) error {
				return s.manager.Step(c, target)
			})
		},
	}
}

func newRollbackCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "rollback <run-id> <phase>",
		Short: "Move a run back to an earlier phase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parsePhaseArg(args[1])
			if err != nil {
				return err
			}
			_, state, err := ctx.loadRun(args[0])
			if err != nil {
				return err
			}
			return drive(cmd, ctx, state, false, 0, func(c context.Context, s *session) error {
				return s.manager.Rollback(c, target, assumeYes)
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Force rollbacks outside the transition table without asking")
	return cmd
}
