package hron

import (
	"fmt"
	"time"
)

// validateData checks a tree built outside the parser.
func validateData(data *ScheduleData) error {
	if data == nil || data.Expr == nil {
		return evalError("schedule has no expression")
	}
	if err := validateExpr(data.Expr); err != nil {
		return evalError(err.Error())
	}

	for _, spec := range data.Except {
		if err := validateDateSpec(spec); err != nil {
			return evalError(err.Error())
		}
	}
	if data.Until != nil {
		if err := validateDateSpec(*data.Until); err != nil {
			return evalError(err.Error())
		}
	}
	if data.Anchor != nil && !validDate(data.Anchor.Year, data.Anchor.Month, data.Anchor.Day) {
		return evalError("invalid date: " + data.Anchor.String())
	}
	for _, m := range data.During {
		if m < time.January || m > time.December {
			return evalError(fmt.Sprintf("invalid month: %d", m))
		}
	}
	return nil
}

func validateExpr(expr Expr) error {
	var (
		interval = 1
		times    []TimeOfDay
	)

	switch x := expr.(type) {
	case DayRepeat:
		interval, times = x.Interval, x.Times
		if err := validateDayFilter(x.Days); err != nil {
			return err
		}
	case IntervalRepeat:
		interval, times = x.Interval, []TimeOfDay{x.From, x.To}
		if x.Unit != Minutes && x.Unit != Hours {
			return fmt.Errorf("invalid interval unit: %d", x.Unit)
		}
		if x.Days != nil {
			if err := validateDayFilter(*x.Days); err != nil {
				return err
			}
		}
	case WeekRepeat:
		interval, times = x.Interval, x.Times
		if len(x.Days) == 0 {
			return fmt.Errorf("weekly schedule needs at least one day")
		}
		if err := validateWeekdays(x.Days); err != nil {
			return err
		}
	case MonthRepeat:
		interval, times = x.Interval, x.Times
		if err := validateMonthTarget(x.Target); err != nil {
			return err
		}
	case OrdinalRepeat:
		interval, times = x.Interval, x.Times
		if err := validateOrdinal(x.Ordinal, x.Weekday); err != nil {
			return err
		}
	case SingleDate:
		times = x.Times
		if err := validateDateSpec(x.Date); err != nil {
			return err
		}
	case YearRepeat:
		interval, times = x.Interval, x.Times
		if err := validateYearTarget(x.Target); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown expression %T", expr)
	}

	if interval < 1 {
		return fmt.Errorf("interval must be at least 1")
	}
	if len(times) == 0 {
		return fmt.Errorf("at least one time is required")
	}
	for _, t := range times {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("invalid time: %02d:%02d", t.Hour, t.Minute)
		}
	}
	return nil
}

func validateDayFilter(f DayFilter) error {
	if f.Kind != SpecificDays {
		return nil
	}
	if len(f.Days) == 0 {
		return fmt.Errorf("day list must not be empty")
	}
	return validateWeekdays(f.Days)
}

func validateWeekdays(days []time.Weekday) error {
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday: %d", d)
		}
	}
	return nil
}

func validateOrdinal(ord Ordinal, wd time.Weekday) error {
	if ord < First || ord > Last {
		return fmt.Errorf("invalid ordinal: %d", ord)
	}
	return validateWeekdays([]time.Weekday{wd})
}

func validateMonthTarget(target MonthTarget) error {
	switch t := target.(type) {
	case DaysTarget:
		if len(t.Specs) == 0 {
			return fmt.Errorf("day list must not be empty")
		}
		for _, r := range t.Specs {
			if r.Start < 1 || r.End > 31 || r.Start > r.End {
				return fmt.Errorf("invalid day range: %d to %d", r.Start, r.End)
			}
		}
	case NearestWeekdayTarget:
		if t.Day < 1 || t.Day > 31 {
			return fmt.Errorf("invalid day of month: %d", t.Day)
		}
	case OrdinalWeekdayTarget:
		return validateOrdinal(t.Ordinal, t.Weekday)
	case LastDayTarget, LastWeekdayTarget:
	default:
		return fmt.Errorf("unknown month target %T", target)
	}
	return nil
}

func validateYearTarget(target YearTarget) error {
	switch t := target.(type) {
	case YearDateTarget:
		return validateDateSpec(Named(t.Month, t.Day))
	case YearDayTarget:
		return validateDateSpec(Named(t.Month, t.Day))
	case YearOrdinalTarget:
		if err := validateOrdinal(t.Ordinal, t.Weekday); err != nil {
			return err
		}
		return validateMonth(t.Month)
	case YearLastWeekdayTarget:
		return validateMonth(t.Month)
	}
	return fmt.Errorf("unknown year target %T", target)
}

func validateMonth(m time.Month) error {
	if m < time.January || m > time.December {
		return fmt.Errorf("invalid month: %d", m)
	}
	return nil
}

// validateDateSpec accepts a named date that exists in leap years.
func validateDateSpec(spec DateSpec) error {
	if spec.Kind == ISODate {
		if !validDate(spec.Date.Year, spec.Date.Month, spec.Date.Day) {
			return fmt.Errorf("invalid date: %s", spec.Date)
		}
		return nil
	}
	if !validDate(2000, spec.Month, spec.Day) {
		return fmt.Errorf("invalid date: %d-%02d", spec.Month, spec.Day)
	}
	return nil
}
