package commands

import (
	"context"
	"fmt"
	"log/slog"
	"transferegov-backend/internal/components/chrono"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--config <path/to/config.json5>]",
	Short: "Serves the procedures over http and runs the configured schedules.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))

		if len(a.cfg.Schedules) > 0 {
			clock, err := chrono.NewStandardImpl()
			if err != nil {
				return err
			}
			cron := chrono.NewStandardCron(ctx, clock, telemetry.NewScopedAPI("cron", telemetry.SlogAPI{}))
			err = a.service.Schedule(ctx, cron, a.cfg.Schedules)
			if err != nil {
				return fmt.Errorf("schedules: %w", err)
			}
			slog.Info("scheduled queries", "count", len(a.cfg.Schedules))
		}

		return serviceutil.StartHttpServer(ctx, a.cfg.Port(), a.service.Handler(), a.cfg.ShutdownGrace())
	},
}
