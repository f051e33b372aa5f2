package hron

import (
	"fmt"
	"time"
)

// ScheduleData is the parsed form of an expression: one Expr plus the
// trailing modifiers. It is treated as immutable once built.
type ScheduleData struct {
	Expr     Expr
	Timezone string
	Except   []DateSpec
	Until    *DateSpec
	Anchor   *Date
	During   []time.Month
}

// String returns the canonical text for the schedule.
func (s *ScheduleData) String() string {
	return Display(s)
}

// Expr is implemented by the seven expression variants.
type Expr interface {
	isExpr()
}

// DayRepeat fires every Interval days, or on the days admitted by Days.
type DayRepeat struct {
	Interval int
	Days     DayFilter
	Times    []TimeOfDay
}

// IntervalRepeat fires every Interval units between From and To on each
// day admitted by Days (all days when nil).
type IntervalRepeat struct {
	Interval int
	Unit     IntervalUnit
	From     TimeOfDay
	To       TimeOfDay
	Days     *DayFilter
}

// WeekRepeat fires on the given weekdays of every Interval-th week.
type WeekRepeat struct {
	Interval int
	Days     []time.Weekday
	Times    []TimeOfDay
}

// MonthRepeat fires on Target in every Interval-th month.
type MonthRepeat struct {
	Interval int
	Target   MonthTarget
	Times    []TimeOfDay
}

// OrdinalRepeat fires on the nth (or last) Weekday of every Interval-th month.
type OrdinalRepeat struct {
	Interval int
	Ordinal  Ordinal
	Weekday  time.Weekday
	Times    []TimeOfDay
}

// SingleDate fires once for an ISO date, or yearly for a named date.
type SingleDate struct {
	Date  DateSpec
	Times []TimeOfDay
}

// YearRepeat fires on Target in every Interval-th year.
type YearRepeat struct {
	Interval int
	Target   YearTarget
	Times    []TimeOfDay
}

func (DayRepeat) isExpr()      {}
func (IntervalRepeat) isExpr() {}
func (WeekRepeat) isExpr()     {}
func (MonthRepeat) isExpr()    {}
func (OrdinalRepeat) isExpr()  {}
func (SingleDate) isExpr()     {}
func (YearRepeat) isExpr()     {}

// =============================================================================
// Day filters
// =============================================================================

type DayFilterKind int

const (
	EveryDay DayFilterKind = iota
	Weekdays
	Weekends
	SpecificDays
)

// DayFilter restricts which days of the week a schedule applies to.
// Days is only used with SpecificDays.
type DayFilter struct {
	Kind DayFilterKind
	Days []time.Weekday
}

// Matches reports whether the weekday passes the filter.
func (f DayFilter) Matches(wd time.Weekday) bool {
	switch f.Kind {
	case EveryDay:
		return true
	case Weekdays:
		return wd != time.Saturday && wd != time.Sunday
	case Weekends:
		return wd == time.Saturday || wd == time.Sunday
	case SpecificDays:
		for _, d := range f.Days {
			if d == wd {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// Month targets
// =============================================================================

// MonthTarget selects the day(s) within a month for MonthRepeat.
type MonthTarget interface {
	isMonthTarget()
}

// DaysTarget is a list of days of the month and inclusive day ranges.
type DaysTarget struct {
	Specs []DayRange
}

// LastDayTarget is the last calendar day of the month.
type LastDayTarget struct{}

// LastWeekdayTarget is the last Monday-Friday of the month.
type LastWeekdayTarget struct{}

// NearestWeekdayTarget is the Monday-Friday closest to Day.
type NearestWeekdayTarget struct {
	Day       int
	Direction Direction
}

// OrdinalWeekdayTarget is the nth (or last) weekday of the month.
type OrdinalWeekdayTarget struct {
	Ordinal Ordinal
	Weekday time.Weekday
}

func (DaysTarget) isMonthTarget()           {}
func (LastDayTarget) isMonthTarget()        {}
func (LastWeekdayTarget) isMonthTarget()    {}
func (NearestWeekdayTarget) isMonthTarget() {}
func (OrdinalWeekdayTarget) isMonthTarget() {}

// DayRange is an inclusive range of days of the month. A single day has
// Start == End.
type DayRange struct {
	Start int
	End   int
}

// Days expands every spec into individual days in declaration order.
func (t DaysTarget) Days() []int {
	var days []int
	for _, spec := range t.Specs {
		for d := spec.Start; d <= spec.End; d++ {
			days = append(days, d)
		}
	}
	return days
}

// Direction forces which way NearestWeekdayTarget moves off a weekend.
type Direction int

const (
	NearestAny Direction = iota
	NearestNext
	NearestPrevious
)

// =============================================================================
// Year targets
// =============================================================================

// YearTarget selects the day within a year for YearRepeat.
type YearTarget interface {
	isYearTarget()
}

// YearDateTarget is "dec 25".
type YearDateTarget struct {
	Month time.Month
	Day   int
}

// YearOrdinalTarget is "the first monday of mar".
type YearOrdinalTarget struct {
	Ordinal Ordinal
	Weekday time.Weekday
	Month   time.Month
}

// YearDayTarget is "the 15th of mar".
type YearDayTarget struct {
	Day   int
	Month time.Month
}

// YearLastWeekdayTarget is "the last weekday of dec".
type YearLastWeekdayTarget struct {
	Month time.Month
}

func (YearDateTarget) isYearTarget()        {}
func (YearOrdinalTarget) isYearTarget()     {}
func (YearDayTarget) isYearTarget()         {}
func (YearLastWeekdayTarget) isYearTarget() {}

// =============================================================================
// Dates and times
// =============================================================================

type DateSpecKind int

const (
	NamedDate DateSpecKind = iota
	ISODate
)

// DateSpec is either a named month/day that recurs every year or a single
// ISO calendar date.
type DateSpec struct {
	Kind  DateSpecKind
	Month time.Month
	Day   int
	Date  Date
}

// Named returns a yearly-recurring month/day.
func Named(month time.Month, day int) DateSpec {
	return DateSpec{Kind: NamedDate, Month: month, Day: day}
}

// OnDate returns a DateSpec for exactly one calendar date.
func OnDate(d Date) DateSpec {
	return DateSpec{Kind: ISODate, Date: d}
}

// matches reports whether d falls on the named or ISO date.
func (s DateSpec) matches(d Date) bool {
	if s.Kind == ISODate {
		return d == s.Date
	}
	return d.Month == s.Month && d.Day == s.Day
}

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func timeFromMinutes(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// IntervalUnit is the unit of an IntervalRepeat stride.
type IntervalUnit int

const (
	Minutes IntervalUnit = iota
	Hours
)

// label returns the unit as displayed after an interval count.
func (u IntervalUnit) label(interval int) string {
	switch {
	case u == Minutes && interval == 1:
		return "minute"
	case u == Minutes:
		return "min"
	case interval == 1:
		return "hour"
	default:
		return "hours"
	}
}

func (u IntervalUnit) stepMinutes(interval int) int {
	if u == Hours {
		return interval * 60
	}
	return interval
}

// Ordinal is a position of a weekday within a month.
type Ordinal int

const (
	First Ordinal = iota + 1
	Second
	Third
	Fourth
	Fifth
	Last
)

var ordinalNames = [...]string{"", "first", "second", "third", "fourth", "fifth", "last"}

func (o Ordinal) String() string {
	if o < First || o > Last {
		return fmt.Sprintf("Ordinal(%d)", int(o))
	}
	return ordinalNames[o]
}
