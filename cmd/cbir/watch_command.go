package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cbir/internal/app"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Report background processing errors until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				base := cmd.Context()
				if base == nil {
					base = context.Background()
				}
				runCtx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if err := a.Poller.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for processing errors every %s\n", a.Gateway.BaseURL(), a.Config.PollInterval())
				<-runCtx.Done()
				a.Poller.Stop()
				return nil
			})
		},
	}
}
