package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/internal/manifest"
)

func newImportCmd(g *globals) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <manifest>",
		Short: "Create or update stored schedules from a YAML, JSONC or TOML manifest",
		Long: `Create or update stored schedules from a manifest file.

Schedules are matched by name. Existing schedules keep their ID and run
history. Every entry is validated before anything is written, and the
import happens in a single transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			opts, err := cfg.HronOptions()
			if err != nil {
				return err
			}

			m, err := manifest.ReadFile(args[0])
			if err != nil {
				return err
			}
			schedules, err := m.Resolve(opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				for _, s := range schedules {
					fmt.Fprintf(out, "%s: %s\n", s.Name, s.Canonical)
				}
				return nil
			}

			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := db.OpenWithConfig(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := manifest.Import(store, schedules)
			if err != nil {
				return err
			}
			for _, name := range result.Created {
				fmt.Fprintf(out, "created   %s\n", name)
			}
			for _, name := range result.Updated {
				fmt.Fprintf(out, "updated   %s\n", name)
			}
			for _, name := range result.Unchanged {
				fmt.Fprintf(out, "unchanged %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print the canonical forms without writing")
	return cmd
}
