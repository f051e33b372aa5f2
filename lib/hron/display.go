package hron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Display renders s in canonical form. Parsing the result yields a tree
// equal to s.
func Display(s *ScheduleData) string {
	var sb strings.Builder
	sb.WriteString(displayExpr(s.Expr))

	if len(s.Except) > 0 {
		sb.WriteString(" except ")
		sb.WriteString(joinList(s.Except, DateSpec.String))
	}
	if s.Until != nil {
		sb.WriteString(" until ")
		sb.WriteString(s.Until.String())
	}
	if s.Anchor != nil {
		sb.WriteString(" starting ")
		sb.WriteString(s.Anchor.String())
	}
	if len(s.During) > 0 {
		sb.WriteString(" during ")
		sb.WriteString(joinList(s.During, monthShort))
	}
	if s.Timezone != "" {
		sb.WriteString(" in ")
		sb.WriteString(s.Timezone)
	}
	return sb.String()
}

func displayExpr(expr Expr) string {
	switch e := expr.(type) {
	case DayRepeat:
		if e.Interval > 1 {
			return fmt.Sprintf("every %d days at %s", e.Interval, timeList(e.Times))
		}
		return fmt.Sprintf("every %s at %s", e.Days, timeList(e.Times))

	case IntervalRepeat:
		out := fmt.Sprintf("every %d %s from %s to %s", e.Interval, e.Unit.label(e.Interval), e.From, e.To)
		if e.Days != nil {
			out += " on " + e.Days.String()
		}
		return out

	case WeekRepeat:
		return fmt.Sprintf("every %d weeks on %s at %s", e.Interval, joinList(e.Days, dayName), timeList(e.Times))

	case MonthRepeat:
		return fmt.Sprintf("%s on the %s at %s", every(e.Interval, "month"), displayMonthTarget(e.Target), timeList(e.Times))

	case OrdinalRepeat:
		return fmt.Sprintf("%s %s of %s at %s", e.Ordinal, dayName(e.Weekday), every(e.Interval, "month"), timeList(e.Times))

	case SingleDate:
		return fmt.Sprintf("on %s at %s", e.Date, timeList(e.Times))

	case YearRepeat:
		return fmt.Sprintf("%s on %s at %s", every(e.Interval, "year"), displayYearTarget(e.Target), timeList(e.Times))
	}
	return ""
}

func displayMonthTarget(target MonthTarget) string {
	switch t := target.(type) {
	case DaysTarget:
		return joinList(t.Specs, DayRange.String)
	case LastDayTarget:
		return "last day"
	case LastWeekdayTarget:
		return "last weekday"
	case NearestWeekdayTarget:
		prefix := ""
		switch t.Direction {
		case NearestNext:
			prefix = "next "
		case NearestPrevious:
			prefix = "previous "
		}
		return prefix + "nearest weekday to " + ordinalDay(t.Day)
	case OrdinalWeekdayTarget:
		return t.Ordinal.String() + " " + dayName(t.Weekday)
	}
	return ""
}

func displayYearTarget(target YearTarget) string {
	switch t := target.(type) {
	case YearDateTarget:
		return fmt.Sprintf("%s %d", monthShort(t.Month), t.Day)
	case YearOrdinalTarget:
		return fmt.Sprintf("the %s %s of %s", t.Ordinal, dayName(t.Weekday), monthShort(t.Month))
	case YearDayTarget:
		return fmt.Sprintf("the %s of %s", ordinalDay(t.Day), monthShort(t.Month))
	case YearLastWeekdayTarget:
		return "the last weekday of " + monthShort(t.Month)
	}
	return ""
}

func (f DayFilter) String() string {
	switch f.Kind {
	case Weekdays:
		return "weekday"
	case Weekends:
		return "weekend"
	case SpecificDays:
		return joinList(f.Days, dayName)
	default:
		return "day"
	}
}

func (r DayRange) String() string {
	if r.Start == r.End {
		return ordinalDay(r.Start)
	}
	return ordinalDay(r.Start) + " to " + ordinalDay(r.End)
}

func (s DateSpec) String() string {
	if s.Kind == ISODate {
		return s.Date.String()
	}
	return fmt.Sprintf("%s %d", monthShort(s.Month), s.Day)
}

// every renders "every month" or "every 3 months".
func every(interval int, unit string) string {
	if interval > 1 {
		return fmt.Sprintf("every %d %ss", interval, unit)
	}
	return "every " + unit
}

func timeList(times []TimeOfDay) string {
	return joinList(times, TimeOfDay.String)
}

func joinList[T any](items []T, format func(T) string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = format(item)
	}
	return strings.Join(parts, ", ")
}

func dayName(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

func monthShort(m time.Month) string {
	return strings.ToLower(m.String()[:3])
}

// ordinalDay renders n with its English suffix: 1st, 2nd, 11th, 23rd.
func ordinalDay(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
