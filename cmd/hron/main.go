package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/livinlefevreloca/hron/internal/config"
	"github.com/livinlefevreloca/hron/lib/hron"
)

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("reported")

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "hron",
		Short:         "Human-readable schedules: evaluate, convert and run them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newExplainCmd(g))
	rootCmd.AddCommand(newNextCmd(g))
	rootCmd.AddCommand(newPrevCmd(g))
	rootCmd.AddCommand(newBetweenCmd(g))
	rootCmd.AddCommand(newMatchCmd(g))
	rootCmd.AddCommand(newCronCmd(g))
	rootCmd.AddCommand(newValidateCmd(g))
	rootCmd.AddCommand(newImportCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newWatchCmd(g))

	return rootCmd
}

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	timezone   string
}

func (g *globals) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.configPath, "config", "", "path to configuration file (TOML)")
	flagSet.StringVar(&g.timezone, "tz", "", "timezone for expressions without an 'in' clause (default UTC)")
}

// load reads and validates the configuration, applying --tz.
func (g *globals) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.timezone != "" {
		cfg.Evaluator.DefaultTimezone = g.timezone
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parse loads the configuration and parses expr with it. Cron text is
// accepted when it is not valid hron.
func (g *globals) parse(expr string) (*hron.Schedule, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.HronOptions()
	if err != nil {
		return nil, err
	}
	return parseExpression(expr, opts)
}

func parseExpression(expr string, opts []hron.Option) (*hron.Schedule, error) {
	s, err := hron.Parse(expr, opts...)
	if err == nil {
		return s, nil
	}
	if fromCron, cronErr := hron.FromCron(expr, opts...); cronErr == nil {
		return fromCron, nil
	}
	return nil, err
}

// expression joins positional arguments so that quoting is optional.
func expression(args []string) string {
	return strings.Join(args, " ")
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
