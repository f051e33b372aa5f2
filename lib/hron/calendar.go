package hron

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var (
	epochDate   = Date{1970, time.January, 1}
	epochMonday = Date{1970, time.January, 5}
)

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a calendar-valid YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date: %s", s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days, normalizing across months and years.
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

func (d Date) Before(o Date) bool {
	return d.compare(o) < 0
}

func (d Date) After(o Date) bool {
	return d.compare(o) > 0
}

func (d Date) compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return d.Year - o.Year
	case d.Month != o.Month:
		return int(d.Month) - int(o.Month)
	default:
		return d.Day - o.Day
	}
}

// mondayOf returns the Monday starting d's ISO week.
func (d Date) mondayOf() Date {
	return d.AddDays(-(isoWeekday(d.Weekday()) - 1))
}

// isoWeekday numbers weekdays Monday=1 through Sunday=7.
func isoWeekday(wd time.Weekday) int {
	return (int(wd)+6)%7 + 1
}

func daysBetween(a, b Date) int {
	return int(b.midnight().Sub(a.midnight()).Hours() / 24)
}

func weeksBetween(a, b Date) int {
	return daysBetween(a, b) / 7
}

func monthsBetween(a, b Date) int {
	return (b.Year*12 + int(b.Month)) - (a.Year*12 + int(a.Month))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// validDate reports whether year/month/day names a real calendar day.
func validDate(year int, month time.Month, day int) bool {
	return month >= time.January && month <= time.December && day >= 1 && day <= daysIn(year, month)
}

func lastDayOf(year int, month time.Month) Date {
	return Date{year, month, daysIn(year, month)}
}

func lastWeekdayOf(year int, month time.Month) Date {
	d := lastDayOf(year, month)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDays(-1)
	}
	return d
}

// nthWeekdayOf returns the nth occurrence of wd in the month. It reports
// false when the month has fewer than n of them.
func nthWeekdayOf(year int, month time.Month, wd time.Weekday, n int) (Date, bool) {
	first := Date{year, month, 1}
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (n-1)*7
	if day > daysIn(year, month) {
		return Date{}, false
	}
	return Date{year, month, day}, true
}

func lastWeekdayNamed(year int, month time.Month, wd time.Weekday) Date {
	last := lastDayOf(year, month)
	back := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDays(-back)
}

// ordinalWeekdayOf resolves an Ordinal weekday within a month.
func ordinalWeekdayOf(year int, month time.Month, ord Ordinal, wd time.Weekday) (Date, bool) {
	if ord == Last {
		return lastWeekdayNamed(year, month, wd), true
	}
	return nthWeekdayOf(year, month, wd, int(ord))
}

// nearestWeekday moves day off a weekend. Without a direction Saturday
// moves back and Sunday forward unless that would leave the month; a
// forced direction may cross into the adjacent month. It reports false when
// the month has no such day.
func nearestWeekday(year int, month time.Month, day int, dir Direction) (Date, bool) {
	lastDay := daysIn(year, month)
	if day > lastDay {
		return Date{}, false
	}

	d := Date{year, month, day}
	switch d.Weekday() {
	case time.Saturday:
		switch {
		case dir == NearestNext, dir == NearestAny && day == 1:
			return d.AddDays(2), true
		default:
			return d.AddDays(-1), true
		}
	case time.Sunday:
		switch {
		case dir == NearestPrevious, dir == NearestAny && day >= lastDay:
			return d.AddDays(-2), true
		default:
			return d.AddDays(1), true
		}
	}
	return d, true
}

// nextMonth advances a year/month pair by one month.
func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

func prevMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}
