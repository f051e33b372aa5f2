// Package hron parses and evaluates hron expressions, a human-readable
// scheduling language that is a superset of 5-field cron:
//
//	every weekday at 09:00 except dec 25 in America/New_York
//	every 2 weeks on monday, friday at 08:30
//	last friday of every month at 17:00
//	every 15 min from 09:00 to 17:00 on weekday
//
// A Schedule is immutable once built and safe for concurrent use. Its
// timezone is resolved once, at construction.
package hron

import (
	"fmt"
	"iter"
	"time"
)

// Schedule is a parsed expression bound to a resolved location.
type Schedule struct {
	data *ScheduleData
	loc  *time.Location
	eval evaluator
}

type options struct {
	zones    ZoneResolver
	limits   Limits
	location *time.Location
}

// Option configures how a Schedule is built.
type Option func(*options)

// WithZoneResolver replaces SystemZones for resolving "in <zone>" clauses.
func WithZoneResolver(r ZoneResolver) Option {
	return func(o *options) {
		o.zones = r
	}
}

// WithLimits overrides the search horizons.
func WithLimits(l Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithDefaultLocation sets the location used when the expression has no
// "in" clause. Timezone still reports an empty name for such schedules.
func WithDefaultLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

func buildOptions(opts []Option) options {
	o := options{
		zones:    SystemZones,
		limits:   DefaultLimits(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parse parses an expression and resolves its timezone.
func Parse(input string, opts ...Option) (*Schedule, error) {
	data, p, err := parse(input)
	if err != nil {
		return nil, err
	}

	s, err := newSchedule(data, buildOptions(opts))
	if err != nil {
		if herr, ok := err.(*Error); ok && herr.Kind == KindParse && p.zoneSpan != nil {
			herr.Span = p.zoneSpan
			herr.Input = input
		}
		return nil, err
	}
	return s, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string, opts ...Option) *Schedule {
	s, err := Parse(input, opts...)
	if err != nil {
		panic(fmt.Sprintf("hron: Parse(%q): %v", input, err))
	}
	return s
}

// FromCron converts a 5-field cron expression or @-shortcut into a Schedule.
func FromCron(expr string, opts ...Option) (*Schedule, error) {
	data, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return newSchedule(data, buildOptions(opts))
}

// New builds a Schedule from a syntax tree constructed in code. The tree is
// checked for the same invariants the parser enforces.
func New(data *ScheduleData, opts ...Option) (*Schedule, error) {
	if err := validateData(data); err != nil {
		return nil, err
	}
	return newSchedule(data, buildOptions(opts))
}

// Validate reports whether input is a well-formed expression. The timezone
// is not resolved.
func Validate(input string) bool {
	_, err := ParseData(input)
	return err == nil
}

func newSchedule(data *ScheduleData, o options) (*Schedule, error) {
	if err := o.limits.Validate(); err != nil {
		return nil, evalError("invalid limits: " + err.Error())
	}

	loc := o.location
	if data.Timezone != "" {
		var err error
		loc, err = o.zones.Resolve(data.Timezone)
		if err != nil || loc == nil {
			return nil, &Error{Kind: KindParse, Message: "unknown timezone: " + data.Timezone}
		}
	}

	return &Schedule{
		data: data,
		loc:  loc,
		eval: evaluator{data: data, loc: loc, limits: o.limits},
	}, nil
}

// NextFrom returns the earliest occurrence strictly after now.
func (s *Schedule) NextFrom(now time.Time) (time.Time, bool) {
	return s.eval.next(now)
}

// NextNFrom returns up to n ascending occurrences after now. Fewer are
// returned when the schedule ends.
func (s *Schedule) NextNFrom(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for t := range s.Occurrences(now) {
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out
}

// PreviousFrom returns the latest occurrence strictly before now.
func (s *Schedule) PreviousFrom(now time.Time) (time.Time, bool) {
	return s.eval.previous(now)
}

// Matches reports whether t, to the minute, is an occurrence.
func (s *Schedule) Matches(t time.Time) bool {
	return s.eval.matches(t)
}

// Occurrences yields occurrences strictly after from, in order. The
// sequence is unbounded unless the schedule ends.
func (s *Schedule) Occurrences(from time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		current := from
		for {
			next, ok := s.eval.next(current)
			if !ok {
				return
			}
			if !yield(next) {
				return
			}
			current = next
		}
	}
}

// Between yields occurrences t with from < t <= to.
func (s *Schedule) Between(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for t := range s.Occurrences(from) {
			if t.After(to) || !yield(t) {
				return
			}
		}
	}
}

// ToCron converts the schedule to 5-field cron when it is representable.
func (s *Schedule) ToCron() (string, error) {
	return ToCron(s.data)
}

// String returns the canonical form of the expression.
func (s *Schedule) String() string {
	return Display(s.data)
}

// Timezone returns the zone named by the "in" clause, or "".
func (s *Schedule) Timezone() string {
	return s.data.Timezone
}

// Location returns the location occurrences are computed in.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// Data returns the syntax tree. It must not be modified.
func (s *Schedule) Data() *ScheduleData {
	return s.data
}
