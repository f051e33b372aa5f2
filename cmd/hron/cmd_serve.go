package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/internal/scheduler"
)

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler against the stored schedules",
		Long: `Run the scheduler service. Stored, enabled schedules are evaluated
continuously; every due run is recorded in the database and logged.
Stop with SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			opts, err := cfg.HronOptions()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, os.Stdout)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			logger.Info("starting hron scheduler",
				"config_file", g.configPath,
				"driver", cfg.Database.Driver,
				"dsn", cfg.Database.DSN,
				"default_timezone", cfg.Evaluator.DefaultTimezone)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := db.OpenWithConfig(ctx, cfg.Database, logger)
			if err != nil {
				logger.Error("failed to connect to database", "error", err, "driver", cfg.Database.Driver)
				return errReported
			}
			defer store.Close()

			s, err := scheduler.NewScheduler(cfg.Scheduler, store, logDispatch(logger), logger,
				scheduler.WithParseOptions(opts...))
			if err != nil {
				logger.Error("failed to create scheduler", "error", err)
				return errReported
			}

			logger.Info("hron is running")
			return s.Run(ctx)
		},
	}
}

// logDispatch is the handler used by serve: a run's work is to be logged.
func logDispatch(logger *slog.Logger) scheduler.Handler {
	return func(_ context.Context, d scheduler.Dispatch) error {
		logger.Info("schedule fired",
			"schedule_id", d.ScheduleID,
			"run_id", d.RunID,
			"scheduled_at", d.ScheduledAt,
			"expression", d.Expression)
		return nil
	}
}
