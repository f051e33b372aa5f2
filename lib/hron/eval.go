package hron

import (
	"slices"
	"time"
)

// evaluator computes occurrences of one schedule in a resolved location.
//
// Every search works on wall-clock dates in loc and converts candidates to
// instants through atTime. Multi-unit intervals are aligned to the anchor
// date: the "starting" clause when present, otherwise 1970-01-01 for days,
// months and years and 1970-01-05 (a Monday) for weeks.
type evaluator struct {
	data   *ScheduleData
	loc    *time.Location
	limits Limits
}

// =============================================================================
// Forward search
// =============================================================================

// next returns the earliest occurrence strictly after now. Candidates are
// filtered by during, then except, then until.
func (e *evaluator) next(now time.Time) (time.Time, bool) {
	data := e.data

	var until Date
	hasUntil := data.Until != nil
	if hasUntil {
		until = resolveUntil(*data.Until, DateOf(now.In(e.loc)))
	}

	// A directed nearest-weekday target can land outside its source month,
	// so during is checked against the source month inside the month scan.
	directed := e.directedNearest()

	current := now
	for range e.limits.MaxIterations {
		c, ok := e.nextExpr(current, directed)
		if !ok {
			return time.Time{}, false
		}
		d := DateOf(c)

		switch {
		case hasUntil && d.After(until):
			return time.Time{}, false
		case !directed && !inMonths(d.Month, data.During):
			skip := nextDuringMonth(d, data.During)
			current = atTime(skip, TimeOfDay{}, e.loc).Add(-time.Second)
		case e.excepted(d):
			current = atTime(d.AddDays(1), TimeOfDay{}, e.loc).Add(-time.Second)
		default:
			return c, true
		}
	}
	return time.Time{}, false
}

func (e *evaluator) nextExpr(now time.Time, directed bool) (time.Time, bool) {
	switch x := e.data.Expr.(type) {
	case DayRepeat:
		return e.nextDay(x, now)
	case IntervalRepeat:
		return e.nextInterval(x, now)
	case WeekRepeat:
		return e.nextWeek(x, now)
	case MonthRepeat:
		var during []time.Month
		if directed {
			during = e.data.During
		}
		return e.nextInMonths(x.Interval, now, during, monthTargetDates(x.Target), x.Times)
	case OrdinalRepeat:
		target := OrdinalWeekdayTarget{Ordinal: x.Ordinal, Weekday: x.Weekday}
		return e.nextInMonths(x.Interval, now, nil, monthTargetDates(target), x.Times)
	case SingleDate:
		return e.nextSingle(x, now)
	case YearRepeat:
		return e.nextInYears(x.Interval, now, yearTargetDate(x.Target), x.Times)
	}
	return time.Time{}, false
}

func (e *evaluator) nextDay(x DayRepeat, now time.Time) (time.Time, bool) {
	today := DateOf(now.In(e.loc))

	if x.Interval <= 1 {
		for i := 0; i <= e.limits.DayLookahead; i++ {
			d := today.AddDays(i)
			if !x.Days.Matches(d.Weekday()) {
				continue
			}
			if c, ok := e.earliestAfter(d, x.Times, now); ok {
				return c, true
			}
		}
		return time.Time{}, false
	}

	// Day filters only apply to single-day repeats.
	anchor := e.anchorOr(epochDate)
	d := today
	if d.Before(anchor) {
		d = anchor
	}
	if r := floorMod(daysBetween(anchor, d), x.Interval); r != 0 {
		d = d.AddDays(x.Interval - r)
	}

	for range e.limits.StrideLookahead {
		if c, ok := e.earliestAfter(d, x.Times, now); ok {
			return c, true
		}
		d = d.AddDays(x.Interval)
	}
	return time.Time{}, false
}

func (e *evaluator) nextInterval(x IntervalRepeat, now time.Time) (time.Time, bool) {
	local := now.In(e.loc)
	today := DateOf(local)
	step := x.Unit.stepMinutes(x.Interval)
	from, to := x.From.minutes(), x.To.minutes()

	for i := range e.limits.StrideLookahead {
		d := today.AddDays(i)
		if x.Days != nil && !x.Days.Matches(d.Weekday()) {
			continue
		}

		slot := from
		if nowMinutes := local.Hour()*60 + local.Minute(); i == 0 && nowMinutes > from {
			slot = from + (nowMinutes-from)/step*step
		}
		for ; slot <= to; slot += step {
			if c := atTime(d, timeFromMinutes(slot), e.loc); c.After(now) {
				return c, true
			}
		}
	}
	return time.Time{}, false
}

func (e *evaluator) nextWeek(x WeekRepeat, now time.Time) (time.Time, bool) {
	days := sortedWeekdays(x.Days)
	anchorMonday := e.anchorOr(epochMonday).mondayOf()
	monday := DateOf(now.In(e.loc)).mondayOf()

	for range e.limits.WeekLookahead {
		weeks := weeksBetween(anchorMonday, monday)
		if weeks < 0 {
			monday = anchorMonday
			continue
		}

		if weeks%x.Interval == 0 {
			for _, wd := range days {
				d := monday.AddDays(isoWeekday(wd) - 1)
				if c, ok := e.earliestAfter(d, x.Times, now); ok {
					return c, true
				}
			}
		}
		monday = monday.AddDays(7 * (x.Interval - weeks%x.Interval))
	}
	return time.Time{}, false
}

// nextInMonths scans aligned months from the current one and returns the
// earliest future occurrence among the dates produced for each month. A
// non-empty during restricts which source months are considered.
func (e *evaluator) nextInMonths(interval int, now time.Time, during []time.Month, dates func(int, time.Month) []Date, times []TimeOfDay) (time.Time, bool) {
	local := now.In(e.loc)
	year, month := local.Year(), local.Month()
	anchor := e.anchorOr(epochDate)

	for range e.limits.MonthLookahead * interval {
		if inMonths(month, during) && monthAligned(anchor, year, month, interval) {
			var (
				best  time.Time
				found bool
			)
			for _, d := range dates(year, month) {
				if c, ok := e.earliestAfter(d, times, now); ok && (!found || c.Before(best)) {
					best, found = c, true
				}
			}
			if found {
				return best, true
			}
		}
		year, month = nextMonth(year, month)
	}
	return time.Time{}, false
}

func (e *evaluator) nextSingle(x SingleDate, now time.Time) (time.Time, bool) {
	if x.Date.Kind == ISODate {
		return e.earliestAfter(x.Date.Date, x.Times, now)
	}

	start := now.In(e.loc).Year()
	for year := start; year < start+e.limits.YearLookahead; year++ {
		if !validDate(year, x.Date.Month, x.Date.Day) {
			continue
		}
		if c, ok := e.earliestAfter(Date{year, x.Date.Month, x.Date.Day}, x.Times, now); ok {
			return c, true
		}
	}
	return time.Time{}, false
}

func (e *evaluator) nextInYears(interval int, now time.Time, date func(int) (Date, bool), times []TimeOfDay) (time.Time, bool) {
	start := now.In(e.loc).Year()
	anchorYear := e.anchorOr(epochDate).Year

	for year := start; year < start+e.limits.YearLookahead*interval; year++ {
		if !yearAligned(anchorYear, year, interval) {
			continue
		}
		d, ok := date(year)
		if !ok {
			continue
		}
		if c, ok := e.earliestAfter(d, times, now); ok {
			return c, true
		}
	}
	return time.Time{}, false
}

// =============================================================================
// Backward search
// =============================================================================

// previous returns the latest occurrence strictly before now.
func (e *evaluator) previous(now time.Time) (time.Time, bool) {
	data := e.data

	var until Date
	hasUntil := data.Until != nil
	if hasUntil {
		until = resolveUntil(*data.Until, DateOf(now.In(e.loc)))
	}
	endOfDay := TimeOfDay{23, 59}

	current := now
	for range e.limits.MaxIterations {
		c, ok := e.prevExpr(current)
		if !ok {
			return time.Time{}, false
		}
		d := DateOf(c)

		switch {
		case data.Anchor != nil && d.Before(*data.Anchor):
			return time.Time{}, false
		case hasUntil && d.After(until):
			current = atTime(until, endOfDay, e.loc).Add(time.Second)
		case !inMonths(d.Month, data.During):
			current = atTime(prevDuringMonth(d, data.During), endOfDay, e.loc).Add(time.Second)
		case e.excepted(d):
			current = atTime(d.AddDays(-1), endOfDay, e.loc).Add(time.Second)
		default:
			return c, true
		}
	}
	return time.Time{}, false
}

func (e *evaluator) prevExpr(now time.Time) (time.Time, bool) {
	switch x := e.data.Expr.(type) {
	case DayRepeat:
		return e.prevDay(x, now)
	case IntervalRepeat:
		return e.prevInterval(x, now)
	case WeekRepeat:
		return e.prevWeek(x, now)
	case MonthRepeat:
		return e.prevInMonths(x.Interval, now, monthTargetDates(x.Target), x.Times)
	case OrdinalRepeat:
		target := OrdinalWeekdayTarget{Ordinal: x.Ordinal, Weekday: x.Weekday}
		return e.prevInMonths(x.Interval, now, monthTargetDates(target), x.Times)
	case SingleDate:
		return e.prevSingle(x, now)
	case YearRepeat:
		return e.prevInYears(x.Interval, now, yearTargetDate(x.Target), x.Times)
	}
	return time.Time{}, false
}

func (e *evaluator) prevDay(x DayRepeat, now time.Time) (time.Time, bool) {
	today := DateOf(now.In(e.loc))

	if x.Interval <= 1 {
		for i := 0; i <= e.limits.Lookback; i++ {
			d := today.AddDays(-i)
			if !x.Days.Matches(d.Weekday()) {
				continue
			}
			if c, ok := e.latestBefore(d, x.Times, now); ok {
				return c, true
			}
		}
		return time.Time{}, false
	}

	d := today.AddDays(-floorMod(daysBetween(e.anchorOr(epochDate), today), x.Interval))
	for range 2 {
		if c, ok := e.latestBefore(d, x.Times, now); ok {
			return c, true
		}
		d = d.AddDays(-x.Interval)
	}
	return time.Time{}, false
}

func (e *evaluator) prevInterval(x IntervalRepeat, now time.Time) (time.Time, bool) {
	local := now.In(e.loc)
	today := DateOf(local)
	step := x.Unit.stepMinutes(x.Interval)
	from, to := x.From.minutes(), x.To.minutes()

	for i := range e.limits.Lookback {
		d := today.AddDays(-i)
		if x.Days != nil && !x.Days.Matches(d.Weekday()) {
			continue
		}

		limit := to
		if i == 0 {
			limit = min(to, local.Hour()*60+local.Minute())
		}
		if limit < from {
			continue
		}
		for slot := from + (limit-from)/step*step; slot >= from; slot -= step {
			if c := atTime(d, timeFromMinutes(slot), e.loc); c.Before(now) {
				return c, true
			}
		}
	}
	return time.Time{}, false
}

func (e *evaluator) prevWeek(x WeekRepeat, now time.Time) (time.Time, bool) {
	days := sortedWeekdays(x.Days)
	slices.Reverse(days)

	today := DateOf(now.In(e.loc))
	anchorMonday := e.anchorOr(epochMonday).mondayOf()
	monday := today.mondayOf()

	for range e.limits.WeekLookahead {
		weeks := weeksBetween(anchorMonday, monday)
		if weeks < 0 {
			return time.Time{}, false
		}

		if weeks%x.Interval == 0 {
			for _, wd := range days {
				d := monday.AddDays(isoWeekday(wd) - 1)
				if d.After(today) {
					continue
				}
				if c, ok := e.latestBefore(d, x.Times, now); ok {
					return c, true
				}
			}
		}

		back := weeks % x.Interval
		if back == 0 {
			back = x.Interval
		}
		monday = monday.AddDays(-7 * back)
	}
	return time.Time{}, false
}

func (e *evaluator) prevInMonths(interval int, now time.Time, dates func(int, time.Month) []Date, times []TimeOfDay) (time.Time, bool) {
	today := DateOf(now.In(e.loc))
	year, month := today.Year, today.Month
	anchor := e.anchorOr(epochDate)

	for range e.limits.MonthLookahead * interval {
		if monthAligned(anchor, year, month, interval) {
			candidates := dates(year, month)
			slices.SortFunc(candidates, func(a, b Date) int { return b.compare(a) })
			for _, d := range candidates {
				if d.After(today) {
					continue
				}
				if c, ok := e.latestBefore(d, times, now); ok {
					return c, true
				}
			}
		}
		year, month = prevMonth(year, month)
	}
	return time.Time{}, false
}

func (e *evaluator) prevSingle(x SingleDate, now time.Time) (time.Time, bool) {
	if x.Date.Kind == ISODate {
		return e.latestBefore(x.Date.Date, x.Times, now)
	}

	start := now.In(e.loc).Year()
	for year := start; year > start-e.limits.YearLookahead; year-- {
		if !validDate(year, x.Date.Month, x.Date.Day) {
			continue
		}
		if c, ok := e.latestBefore(Date{year, x.Date.Month, x.Date.Day}, x.Times, now); ok {
			return c, true
		}
	}
	return time.Time{}, false
}

func (e *evaluator) prevInYears(interval int, now time.Time, date func(int) (Date, bool), times []TimeOfDay) (time.Time, bool) {
	start := now.In(e.loc).Year()
	anchorYear := e.anchorOr(epochDate).Year

	for year := start; year > start-e.limits.YearLookahead*interval; year-- {
		if !yearAligned(anchorYear, year, interval) {
			continue
		}
		d, ok := date(year)
		if !ok {
			continue
		}
		if c, ok := e.latestBefore(d, times, now); ok {
			return c, true
		}
	}
	return time.Time{}, false
}

// =============================================================================
// Matching
// =============================================================================

// matches reports whether t, truncated to the minute, is an occurrence.
func (e *evaluator) matches(t time.Time) bool {
	data := e.data
	local := t.In(e.loc)
	d := DateOf(local)

	directed := e.directedNearest()
	if !directed && !inMonths(d.Month, data.During) {
		return false
	}
	if e.excepted(d) {
		return false
	}
	if data.Until != nil && d.After(resolveUntil(*data.Until, d)) {
		return false
	}

	// atTime resolves gaps forward and overlaps to the first instant, so a
	// repeated wall time does not match.
	minute := t.Truncate(time.Minute)
	atAny := func(times []TimeOfDay) bool {
		for _, tod := range times {
			if atTime(d, tod, e.loc).Equal(minute) {
				return true
			}
		}
		return false
	}

	switch x := data.Expr.(type) {
	case DayRepeat:
		if !x.Days.Matches(d.Weekday()) || !atAny(x.Times) {
			return false
		}
		if x.Interval > 1 {
			offset := daysBetween(e.anchorOr(epochDate), d)
			return offset >= 0 && offset%x.Interval == 0
		}
		return true

	case IntervalRepeat:
		if x.Days != nil && !x.Days.Matches(d.Weekday()) {
			return false
		}
		minutes := local.Hour()*60 + local.Minute()
		from, to := x.From.minutes(), x.To.minutes()
		if minutes < from || minutes > to {
			return false
		}
		return (minutes-from)%x.Unit.stepMinutes(x.Interval) == 0

	case WeekRepeat:
		if !slices.Contains(x.Days, d.Weekday()) || !atAny(x.Times) {
			return false
		}
		weeks := weeksBetween(e.anchorOr(epochMonday).mondayOf(), d)
		return weeks >= 0 && weeks%x.Interval == 0

	case MonthRepeat:
		if !atAny(x.Times) {
			return false
		}
		var during []time.Month
		if directed {
			during = data.During
		}
		return e.matchesMonthTarget(x.Interval, x.Target, d, during)

	case OrdinalRepeat:
		if !atAny(x.Times) {
			return false
		}
		target := OrdinalWeekdayTarget{Ordinal: x.Ordinal, Weekday: x.Weekday}
		return e.matchesMonthTarget(x.Interval, target, d, nil)

	case SingleDate:
		return atAny(x.Times) && x.Date.matches(d)

	case YearRepeat:
		if !atAny(x.Times) || !yearAligned(e.anchorOr(epochDate).Year, d.Year, x.Interval) {
			return false
		}
		target, ok := yearTargetDate(x.Target)(d.Year)
		return ok && target == d
	}
	return false
}

// matchesMonthTarget reports whether d is produced by target from an
// aligned source month. Only directed nearest-weekday targets can come from
// a neighbouring month.
func (e *evaluator) matchesMonthTarget(interval int, target MonthTarget, d Date, during []time.Month) bool {
	anchor := e.anchorOr(epochDate)
	dates := monthTargetDates(target)

	sources := [][2]int{{d.Year, int(d.Month)}}
	if t, ok := target.(NearestWeekdayTarget); ok && t.Direction != NearestAny {
		py, pm := prevMonth(d.Year, d.Month)
		ny, nm := nextMonth(d.Year, d.Month)
		sources = append(sources, [2]int{py, int(pm)}, [2]int{ny, int(nm)})
	}

	for _, src := range sources {
		year, month := src[0], time.Month(src[1])
		if !inMonths(month, during) || !monthAligned(anchor, year, month, interval) {
			continue
		}
		if slices.Contains(dates(year, month), d) {
			return true
		}
	}
	return false
}

// =============================================================================
// Helpers
// =============================================================================

// earliestAfter returns the earliest of times on d that falls strictly
// after now.
func (e *evaluator) earliestAfter(d Date, times []TimeOfDay, now time.Time) (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, tod := range times {
		c := atTime(d, tod, e.loc)
		if c.After(now) && (!found || c.Before(best)) {
			best, found = c, true
		}
	}
	return best, found
}

// latestBefore returns the latest of times on d that falls strictly before
// now.
func (e *evaluator) latestBefore(d Date, times []TimeOfDay, now time.Time) (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, tod := range times {
		c := atTime(d, tod, e.loc)
		if c.Before(now) && (!found || c.After(best)) {
			best, found = c, true
		}
	}
	return best, found
}

func (e *evaluator) anchorOr(def Date) Date {
	if e.data.Anchor != nil {
		return *e.data.Anchor
	}
	return def
}

func (e *evaluator) excepted(d Date) bool {
	for _, spec := range e.data.Except {
		if spec.matches(d) {
			return true
		}
	}
	return false
}

func (e *evaluator) directedNearest() bool {
	x, ok := e.data.Expr.(MonthRepeat)
	if !ok || len(e.data.During) == 0 {
		return false
	}
	t, ok := x.Target.(NearestWeekdayTarget)
	return ok && t.Direction != NearestAny
}

// monthTargetDates returns a function producing the dates target selects in
// a month. Days missing from a short month are skipped, never clamped.
func monthTargetDates(target MonthTarget) func(int, time.Month) []Date {
	return func(year int, month time.Month) []Date {
		switch t := target.(type) {
		case DaysTarget:
			var dates []Date
			last := daysIn(year, month)
			for _, day := range t.Days() {
				if day <= last {
					dates = append(dates, Date{year, month, day})
				}
			}
			return dates
		case LastDayTarget:
			return []Date{lastDayOf(year, month)}
		case LastWeekdayTarget:
			return []Date{lastWeekdayOf(year, month)}
		case NearestWeekdayTarget:
			if d, ok := nearestWeekday(year, month, t.Day, t.Direction); ok {
				return []Date{d}
			}
		case OrdinalWeekdayTarget:
			if d, ok := ordinalWeekdayOf(year, month, t.Ordinal, t.Weekday); ok {
				return []Date{d}
			}
		}
		return nil
	}
}

// yearTargetDate returns a function resolving target in a given year. It
// reports false when the year has no such date, as with feb 29.
func yearTargetDate(target YearTarget) func(int) (Date, bool) {
	return func(year int) (Date, bool) {
		switch t := target.(type) {
		case YearDateTarget:
			return Date{year, t.Month, t.Day}, validDate(year, t.Month, t.Day)
		case YearDayTarget:
			return Date{year, t.Month, t.Day}, validDate(year, t.Month, t.Day)
		case YearOrdinalTarget:
			return ordinalWeekdayOf(year, t.Month, t.Ordinal, t.Weekday)
		case YearLastWeekdayTarget:
			return lastWeekdayOf(year, t.Month), true
		}
		return Date{}, false
	}
}

func monthAligned(anchor Date, year int, month time.Month, interval int) bool {
	if interval <= 1 {
		return true
	}
	offset := monthsBetween(anchor, Date{year, month, 1})
	return offset >= 0 && offset%interval == 0
}

func yearAligned(anchorYear, year, interval int) bool {
	if interval <= 1 {
		return true
	}
	offset := year - anchorYear
	return offset >= 0 && offset%interval == 0
}

// resolveUntil turns an until clause into a cutoff date. A named date
// resolves to its next occurrence on or after today.
func resolveUntil(spec DateSpec, today Date) Date {
	if spec.Kind == ISODate {
		return spec.Date
	}
	for year := today.Year; year <= today.Year+1; year++ {
		d := Date{year, spec.Month, spec.Day}
		if validDate(year, spec.Month, spec.Day) && !d.Before(today) {
			return d
		}
	}
	return Date{today.Year + 1, spec.Month, spec.Day}
}

// inMonths reports whether m is in months. An empty list admits every month.
func inMonths(m time.Month, months []time.Month) bool {
	return len(months) == 0 || slices.Contains(months, m)
}

// nextDuringMonth returns the first day of the next allowed month after d's
// month, wrapping into the following year.
func nextDuringMonth(d Date, during []time.Month) Date {
	months := slices.Clone(during)
	slices.Sort(months)
	for _, m := range months {
		if m > d.Month {
			return Date{d.Year, m, 1}
		}
	}
	return Date{d.Year + 1, months[0], 1}
}

// prevDuringMonth returns the last day of the closest allowed month before
// d's month.
func prevDuringMonth(d Date, during []time.Month) Date {
	year, month := prevMonth(d.Year, d.Month)
	for range 13 {
		if slices.Contains(during, month) {
			return lastDayOf(year, month)
		}
		year, month = prevMonth(year, month)
	}
	return d.AddDays(-1)
}

func sortedWeekdays(days []time.Weekday) []time.Weekday {
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b time.Weekday) int { return isoWeekday(a) - isoWeekday(b) })
	return sorted
}

func floorMod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
