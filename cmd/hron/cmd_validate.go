package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/hron/lib/hron"
)

var (
	validStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <expression>",
		Short: "Check an expression and point at the first error",
		Long: `Check an hron expression. On success the canonical form is printed.
On failure the offending part of the input is underlined and the command
exits with status 1.`,
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

			s, err := hron.Parse(expression(args), opts...)
			if err != nil {
				var herr *hron.Error
				if !errors.As(err, &herr) {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), invalidStyle.Render("invalid"))
				fmt.Fprintln(cmd.ErrOrStderr(), herr.DisplayRich())
				if _, cronErr := hron.FromCron(expression(args), opts...); cronErr == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), hintStyle.Render("this is a cron expression; try: hron cron from"))
				}
				return errReported
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", validStyle.Render("valid:"), s)
			return nil
		},
	}
}
