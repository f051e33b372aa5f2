package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/hron/internal/crosscheck"
	"github.com/livinlefevreloca/hron/lib/hron"
)

func newCronCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Convert between hron and 5-field cron",
	}
	cmd.AddCommand(newCronToCmd(g))
	cmd.AddCommand(newCronFromCmd(g))
	return cmd
}

func newCronToCmd(g *globals) *cobra.Command {
	var (
		verify int
		from   timeValue
	)

	cmd := &cobra.Command{
		Use:   "to <expression>",
		Short: "Convert an hron expression to cron",
		Long: `Convert an hron expression to 5-field cron.

With --verify N the first N occurrences are compared against an
independent cron engine evaluating the result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.parse(expression(args))
			if err != nil {
				return err
			}
			expr, err := s.ToCron()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr)

			if verify > 0 {
				report, err := crosscheck.Verify(s, from.resolve(s.Location(), time.Now()), verify)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "verified %d occurrences\n", report.Checked)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&verify, "verify", 0, "cross-check this many occurrences against a cron engine")
	addTimeFlag(cmd.Flags(), &from, "from", "start of the cross-check (default now)")
	return cmd
}

func newCronFromCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "from <cron>",
		Short:   "Convert a 5-field cron expression to hron",
		Example: `  hron cron from "*/15 9-17 * * 1-5"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			opts, err := cfg.HronOptions()
			if err != nil {
				return err
			}
			s, err := hron.FromCron(expression(args), opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
