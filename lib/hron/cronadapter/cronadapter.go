// Package cronadapter lets hron schedules drive a github.com/robfig/cron/v3
// runner. Specs given to the runner may be hron expressions or standard
// cron expressions.
package cronadapter

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/livinlefevreloca/hron/lib/hron"
)

// StandardParser parses 5-field cron expressions and descriptors like @hourly.
var StandardParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule adapts a *hron.Schedule to cron.Schedule.
type Schedule struct {
	*hron.Schedule
}

// Next returns the next occurrence after t, or the zero time once the
// schedule has ended, which stops the runner from firing the entry again.
func (s Schedule) Next(t time.Time) time.Time {
	next, ok := s.NextFrom(t)
	if !ok {
		return time.Time{}
	}
	return next
}

// Parser implements cron.ScheduleParser. It tries hron first and falls back
// to the standard cron parser.
type Parser struct {
	opts     []hron.Option
	fallback cron.ScheduleParser
}

// NewParser creates a Parser. opts are passed to hron.Parse.
func NewParser(opts ...hron.Option) *Parser {
	return &Parser{opts: opts, fallback: StandardParser}
}

// Parse returns an hron-backed schedule when spec is an hron expression.
// When neither parser accepts spec the hron error is returned, since it
// carries the span of the problem.
func (p *Parser) Parse(spec string) (cron.Schedule, error) {
	s, err := hron.Parse(spec, p.opts...)
	if err == nil {
		return Schedule{s}, nil
	}
	if cs, cerr := p.fallback.Parse(spec); cerr == nil {
		return cs, nil
	}
	return nil, err
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger adapts an slog logger to cron.Logger.
func NewLogger(logger *slog.Logger) cron.Logger {
	return slogLogger{logger: logger}
}

func (l slogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// New creates a cron runner that accepts hron specs and logs through logger.
func New(logger *slog.Logger, opts ...hron.Option) *cron.Cron {
	return cron.New(
		cron.WithParser(NewParser(opts...)),
		cron.WithLogger(NewLogger(logger)),
	)
}
