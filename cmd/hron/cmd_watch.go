package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/hron/lib/hron/cronadapter"
)

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <expression>",
		Short: "Run the expression in-process and log every firing until interrupted",
		Long: `Run the expression with an in-process cron runner. hron text and
standard 5-field cron are both accepted. Each firing is logged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			opts, err := cfg.HronOptions()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			spec := expression(args)
			runner := cronadapter.New(logger, opts...)
			id, err := runner.AddFunc(spec, func() {
				logger.Info("fired", "expression", spec, "at", time.Now().Format(time.RFC3339))
			})
			if err != nil {
				return err
			}

			next := runner.Entry(id).Schedule.Next(time.Now())
			if next.IsZero() {
				return fmt.Errorf("%q has no future occurrences", spec)
			}
			logger.Info("watching", "expression", spec, "next", next.Format(time.RFC3339))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner.Start()
			<-ctx.Done()
			<-runner.Stop().Done()
			return nil
		},
	}
}
