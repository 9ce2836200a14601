package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/hitl"
	"loom/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through every configured notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cfg.Notifications.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications are disabled (notifications.enabled = false)")
				return nil
			}
			ui := hitl.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), false)
			service := notifications.NewService(cfg, ui, logger)
			if err := service.Publish(cmd.Context(), notifications.EventTest, notifications.Payload{}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
