package hron

import "fmt"

// Limits bounds every occurrence search so that contradictory schedules
// terminate. The zero value is not usable; start from DefaultLimits.
type Limits struct {
	// MaxIterations caps how many candidates may be rejected by the
	// during, except and until modifiers before a search gives up.
	MaxIterations int `toml:"max_iterations"`
	// DayLookahead is the number of days scanned after today for daily
	// schedules with a day filter.
	DayLookahead int `toml:"day_lookahead"`
	// StrideLookahead is the number of aligned days (or days for intervals
	// within a day) scanned forward.
	StrideLookahead int `toml:"stride_lookahead"`
	// WeekLookahead is the number of weeks scanned for weekly schedules.
	WeekLookahead int `toml:"week_lookahead"`
	// MonthLookahead is multiplied by the month interval.
	MonthLookahead int `toml:"month_lookahead"`
	// YearLookahead is multiplied by the year interval. It also bounds the
	// search for the next leap year of a feb 29 target.
	YearLookahead int `toml:"year_lookahead"`
	// Lookback is the number of days scanned backwards for daily and
	// intra-day schedules.
	Lookback int `toml:"lookback"`
}

// DefaultLimits returns the standard search horizons.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:   1000,
		DayLookahead:    8,
		StrideLookahead: 400,
		WeekLookahead:   54,
		MonthLookahead:  24,
		YearLookahead:   8,
		Lookback:        8,
	}
}

// Validate checks that every horizon is positive.
func (l Limits) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"max_iterations", l.MaxIterations},
		{"day_lookahead", l.DayLookahead},
		{"stride_lookahead", l.StrideLookahead},
		{"week_lookahead", l.WeekLookahead},
		{"month_lookahead", l.MonthLookahead},
		{"year_lookahead", l.YearLookahead},
		{"lookback", l.Lookback},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", f.name, f.value)
		}
	}
	return nil
}
