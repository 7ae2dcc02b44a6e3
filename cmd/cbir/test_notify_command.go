package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cbir/internal/app"
	"cbir/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through every configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				// The app sink swallows delivery errors; build a raw one to report them.
				out := cmd.ErrOrStderr()
				sink := notifications.NewSink(a.Config, out, shouldColorize(out), a.Logger)
				if err := sink.Notify(cmd.Context(), notifications.TestEvent()); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				if _, ok := sink.(notifications.Noop); ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent (no sinks configured)")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}
