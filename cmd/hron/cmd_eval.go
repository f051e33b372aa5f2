package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newExplainCmd(g *globals) *cobra.Command {
	var from timeValue

	cmd := &cobra.Command{
		Use:   "explain <expression>",
		Short: "Show the canonical form, timezone, cron form and next occurrence",
		Example: `  hron explain every weekday at 9:00 in Europe/London
  hron explain "0 */2 * * *"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.parse(expression(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "expression: %s\n", s)
			if tz := s.Timezone(); tz != "" {
				fmt.Fprintf(out, "timezone:   %s\n", tz)
			} else {
				fmt.Fprintf(out, "timezone:   %s (default)\n", s.Location())
			}
			if expr, err := s.ToCron(); err == nil {
				fmt.Fprintf(out, "cron:       %s\n", expr)
			} else {
				fmt.Fprintf(out, "cron:       %v\n", err)
			}
			if next, ok := s.NextFrom(from.resolve(s.Location(), time.Now())); ok {
				fmt.Fprintf(out, "next:       %s\n", next.Format(outputLayout))
			} else {
				fmt.Fprintln(out, "next:       none")
			}
			return nil
		},
	}

	addTimeFlag(cmd.Flags(), &from, "from", "reference time (default now)")
	return cmd
}

func newNextCmd(g *globals) *cobra.Command {
	var (
		count int
		from  timeValue
	)

	cmd := &cobra.Command{
		Use:   "next <expression>",
		Short: "List the next occurrences of a schedule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("-n must be positive, got %d", count)
			}
			s, err := g.parse(expression(args))
			if err != nil {
				return err
			}
			for _, t := range s.NextNFrom(from.resolve(s.Location(), time.Now()), count) {
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(outputLayout))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of occurrences")
	addTimeFlag(cmd.Flags(), &from, "from", "list occurrences strictly after this time (default now)")
	return cmd
}

func newPrevCmd(g *globals) *cobra.Command {
	var from timeValue

	cmd := &cobra.Command{
		Use:   "prev <expression>",
		Short: "Show the most recent occurrence of a schedule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.parse(expression(args))
			if err != nil {
				return err
			}
			prev, ok := s.PreviousFrom(from.resolve(s.Location(), time.Now()))
			if !ok {
				return errors.New("no previous occurrence")
			}
			fmt.Fprintln(cmd.OutOrStdout(), prev.Format(outputLayout))
			return nil
		},
	}

	addTimeFlag(cmd.Flags(), &from, "from", "find the occurrence strictly before this time (default now)")
	return cmd
}

func newBetweenCmd(g *globals) *cobra.Command {
	var (
		from, to timeValue
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "between <expression> --from <time> --to <time>",
		Short: "List occurrences after --from up to and including --to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to.raw == "" {
				return errors.New("--to is required")
			}
			s, err := g.parse(expression(args))
			if err != nil {
				return err
			}
			now := time.Now()
			start, end := from.resolve(s.Location(), now), to.resolve(s.Location(), now)
			if !end.After(start) {
				return fmt.Errorf("--to (%s) must be after --from (%s)", end.Format(outputLayout), start.Format(outputLayout))
			}

			printed := 0
			for t := range s.Between(start, end) {
				if printed == limit {
					fmt.Fprintf(cmd.ErrOrStderr(), "stopped after %d occurrences (raise --limit)\n", limit)
					break
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(outputLayout))
				printed++
			}
			return nil
		},
	}

	addTimeFlag(cmd.Flags(), &from, "from", "exclusive lower bound (default now)")
	addTimeFlag(cmd.Flags(), &to, "to", "inclusive upper bound")
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum number of occurrences to print")
	return cmd
}

func newMatchCmd(g *globals) *cobra.Command {
	var at timeValue

	cmd := &cobra.Command{
		Use:   "match <expression> --at <time>",
		Short: "Report whether a time is an occurrence; exits 1 when it is not",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.parse(expression(args))
			if err != nil {
				return err
			}
			t := at.resolve(s.Location(), time.Now())
			if !s.Matches(t) {
				fmt.Fprintf(cmd.OutOrStdout(), "no: %s\n", t.In(s.Location()).Format(outputLayout))
				return errReported
			}
			fmt.Fprintf(cmd.OutOrStdout(), "yes: %s\n", t.In(s.Location()).Format(outputLayout))
			return nil
		},
	}

	addTimeFlag(cmd.Flags(), &at, "at", "time to test (default now)")
	return cmd
}
