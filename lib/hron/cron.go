package hron

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// hron -> cron
// =============================================================================

// ToCron renders data as a 5-field cron expression. Only schedules with a
// single time and no except, until or during clause can be converted, and
// only day, full-day interval and day-of-month expressions have a cron form.
func ToCron(data *ScheduleData) (string, error) {
	switch {
	case len(data.Except) > 0:
		return "", notCron("except clauses not supported")
	case data.Until != nil:
		return "", notCron("until clauses not supported")
	case len(data.During) > 0:
		return "", notCron("during clauses not supported")
	}

	switch x := data.Expr.(type) {
	case DayRepeat:
		if x.Interval > 1 {
			return "", notCron("multi-day intervals not supported")
		}
		t, err := singleTime(x.Times)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d * * %s", t.Minute, t.Hour, cronDOW(x.Days)), nil

	case IntervalRepeat:
		if x.From != (TimeOfDay{0, 0}) || x.To != (TimeOfDay{23, 59}) {
			return "", notCron("partial-day interval windows not supported")
		}
		if x.Days != nil {
			return "", notCron("interval with day filter not supported")
		}
		if x.Unit == Hours {
			return fmt.Sprintf("0 */%d * * *", x.Interval), nil
		}
		if 60%x.Interval != 0 {
			return "", notCron(fmt.Sprintf("*/%d breaks at hour boundaries", x.Interval))
		}
		return fmt.Sprintf("*/%d * * * *", x.Interval), nil

	case WeekRepeat:
		return "", notCron("multi-week intervals not supported")

	case MonthRepeat:
		if x.Interval > 1 {
			return "", notCron("multi-month intervals not supported")
		}
		t, err := singleTime(x.Times)
		if err != nil {
			return "", err
		}
		switch target := x.Target.(type) {
		case DaysTarget:
			return fmt.Sprintf("%d %d %s * *", t.Minute, t.Hour, joinInts(target.Days())), nil
		case LastDayTarget:
			return "", notCron("last day of month not supported")
		case LastWeekdayTarget:
			return "", notCron("last weekday of month not supported")
		case NearestWeekdayTarget:
			return "", notCron("nearest weekday not supported")
		case OrdinalWeekdayTarget:
			return "", notCron("ordinal weekday of month not supported")
		}

	case OrdinalRepeat:
		return "", notCron("ordinal weekday of month not supported")

	case SingleDate:
		return "", notCron("single dates are not repeating")

	case YearRepeat:
		return "", notCron("yearly schedules not supported in 5-field cron")
	}

	return "", cronError(fmt.Sprintf("unknown expression type %T", data.Expr))
}

func notCron(reason string) error {
	return cronError("not expressible as cron (" + reason + ")")
}

func singleTime(times []TimeOfDay) (TimeOfDay, error) {
	if len(times) != 1 {
		return TimeOfDay{}, notCron("multiple times not supported")
	}
	return times[0], nil
}

// cronDOW renders a day filter as a cron day-of-week field, Sunday = 0.
func cronDOW(f DayFilter) string {
	switch f.Kind {
	case Weekdays:
		return "1-5"
	case Weekends:
		return "0,6"
	case SpecificDays:
		nums := make([]int, len(f.Days))
		for i, d := range f.Days {
			nums[i] = int(d)
		}
		slices.Sort(nums)
		return joinInts(slices.Compact(nums))
	default:
		return "*"
	}
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// =============================================================================
// cron -> hron
// =============================================================================

type cronFields struct {
	minute, hour, dom, month, dow string
}

// ParseCron converts a 5-field cron expression or an @-shortcut into a
// syntax tree. The month field becomes a during clause.
func ParseCron(expr string) (*ScheduleData, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "@") {
		return cronShortcut(expr)
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, cronError(fmt.Sprintf("expected 5 cron fields, got %d", len(fields)))
	}
	f := cronFields{minute: fields[0], hour: fields[1], dom: fields[2], month: fields[3], dow: fields[4]}
	if f.dom == "?" {
		f.dom = "*"
	}
	if f.dow == "?" {
		f.dow = "*"
	}

	during, err := parseMonthField(f.month)
	if err != nil {
		return nil, err
	}

	// Each form is tried in turn; the first that recognizes the fields wins.
	forms := []func() (Expr, bool, error){
		f.nthWeekday,
		f.lastDay,
		f.nearestWeekday,
		f.interval,
		f.standard,
	}
	for _, form := range forms {
		e, ok, err := form()
		if err != nil {
			return nil, err
		}
		if ok {
			return &ScheduleData{Expr: e, During: during}, nil
		}
	}
	return nil, cronError("unsupported cron expression: " + expr)
}

func cronShortcut(expr string) (*ScheduleData, error) {
	midnight := []TimeOfDay{{0, 0}}

	var e Expr
	switch strings.ToLower(expr) {
	case "@yearly", "@annually":
		e = YearRepeat{Interval: 1, Target: YearDateTarget{Month: time.January, Day: 1}, Times: midnight}
	case "@monthly":
		e = MonthRepeat{Interval: 1, Target: DaysTarget{Specs: []DayRange{{1, 1}}}, Times: midnight}
	case "@weekly":
		e = DayRepeat{Interval: 1, Days: DayFilter{Kind: SpecificDays, Days: []time.Weekday{time.Sunday}}, Times: midnight}
	case "@daily", "@midnight":
		e = DayRepeat{Interval: 1, Days: DayFilter{Kind: EveryDay}, Times: midnight}
	case "@hourly":
		e = IntervalRepeat{Interval: 1, Unit: Hours, From: TimeOfDay{0, 0}, To: TimeOfDay{23, 59}}
	default:
		return nil, cronError("unknown @ shortcut: " + expr)
	}
	return &ScheduleData{Expr: e}, nil
}

// nthWeekday handles "n#k" (kth weekday n) and "nL" (last weekday n).
func (f cronFields) nthWeekday() (Expr, bool, error) {
	var (
		ord     Ordinal
		dayPart string
	)
	switch {
	case strings.Contains(f.dow, "#"):
		var nthPart string
		dayPart, nthPart, _ = strings.Cut(f.dow, "#")
		nth, err := strconv.Atoi(nthPart)
		if err != nil {
			return nil, false, cronError("invalid nth value: " + nthPart)
		}
		if nth < 1 || nth > 5 {
			return nil, false, cronError(fmt.Sprintf("nth must be 1-5, got %d", nth))
		}
		if f.dom != "*" {
			return nil, false, cronError("DOM must be * when using # for nth weekday")
		}
		ord = Ordinal(nth)
	case len(f.dow) > 1 && strings.HasSuffix(f.dow, "L"):
		dayPart = strings.TrimSuffix(f.dow, "L")
		if f.dom != "*" {
			return nil, false, cronError("DOM must be * when using nL for last weekday")
		}
		ord = Last
	default:
		return nil, false, nil
	}

	wd, err := parseDOWValue(dayPart)
	if err != nil {
		return nil, false, err
	}
	t, err := f.time()
	if err != nil {
		return nil, false, err
	}
	return OrdinalRepeat{Interval: 1, Ordinal: ord, Weekday: time.Weekday(wd % 7), Times: []TimeOfDay{t}}, true, nil
}

// lastDay handles "L" and "LW" in the day-of-month field.
func (f cronFields) lastDay() (Expr, bool, error) {
	var target MonthTarget
	switch f.dom {
	case "L":
		target = LastDayTarget{}
	case "LW":
		target = LastWeekdayTarget{}
	default:
		return nil, false, nil
	}
	if f.dow != "*" {
		return nil, false, cronError("DOW must be * when using L or LW in DOM")
	}
	t, err := f.time()
	if err != nil {
		return nil, false, err
	}
	return MonthRepeat{Interval: 1, Target: target, Times: []TimeOfDay{t}}, true, nil
}

// nearestWeekday rejects "nW"; it has no undirected equivalent here.
func (f cronFields) nearestWeekday() (Expr, bool, error) {
	if strings.HasSuffix(f.dom, "W") {
		return nil, false, cronError("W (nearest weekday) not yet supported")
	}
	return nil, false, nil
}

// interval handles a step in the minute field ("*/15 9-17 * * 1-5") or in
// the hour field with minute 0 ("0 */2 * * *").
func (f cronFields) interval() (Expr, bool, error) {
	if strings.Contains(f.minute, "/") {
		e, ok, err := f.minuteInterval()
		if err != nil || ok {
			return e, ok, err
		}
	}
	if strings.Contains(f.hour, "/") && (f.minute == "0" || f.minute == "00") {
		return f.hourInterval()
	}
	return nil, false, nil
}

func (f cronFields) minuteInterval() (Expr, bool, error) {
	rangePart, stepPart, _ := strings.Cut(f.minute, "/")
	step, err := parseStep(stepPart)
	if err != nil {
		return nil, false, err
	}
	fromMinute, toMinute, err := stepRange(rangePart, 0, 59, "minute")
	if err != nil {
		return nil, false, err
	}

	var fromHour, toHour int
	switch {
	case f.hour == "*":
		fromHour, toHour = 0, 23
	case strings.Contains(f.hour, "/"):
		return nil, false, nil
	case strings.Contains(f.hour, "-"):
		a, b, _ := strings.Cut(f.hour, "-")
		if fromHour, err = parseCronNumber(a, "hour", 0, 23); err != nil {
			return nil, false, err
		}
		if toHour, err = parseCronNumber(b, "hour", 0, 23); err != nil {
			return nil, false, err
		}
		if fromHour > toHour {
			return nil, false, cronError(fmt.Sprintf("range start must be <= end: %d-%d", fromHour, toHour))
		}
	default:
		if fromHour, err = parseCronNumber(f.hour, "hour", 0, 23); err != nil {
			return nil, false, err
		}
		toHour = fromHour
	}

	if f.dom != "*" {
		return nil, false, nil
	}

	var days *DayFilter
	if f.dow != "*" {
		filter, err := parseDOWField(f.dow)
		if err != nil {
			return nil, false, err
		}
		days = &filter
	}

	// A window covering whole hours ends on the hour, except a full day which
	// ends at 23:59.
	endMinute := toMinute
	if fromMinute == 0 && toMinute == 59 {
		endMinute = 0
		if toHour == 23 {
			endMinute = 59
		}
	}

	return IntervalRepeat{
		Interval: step,
		Unit:     Minutes,
		From:     TimeOfDay{fromHour, fromMinute},
		To:       TimeOfDay{toHour, endMinute},
		Days:     days,
	}, true, nil
}

func (f cronFields) hourInterval() (Expr, bool, error) {
	rangePart, stepPart, _ := strings.Cut(f.hour, "/")
	step, err := parseStep(stepPart)
	if err != nil {
		return nil, false, err
	}
	fromHour, toHour, err := stepRange(rangePart, 0, 23, "hour")
	if err != nil {
		return nil, false, err
	}
	if f.dom != "*" || f.dow != "*" {
		return nil, false, nil
	}

	endMinute := 0
	if fromHour == 0 && toHour == 23 {
		endMinute = 59
	}
	return IntervalRepeat{
		Interval: step,
		Unit:     Hours,
		From:     TimeOfDay{fromHour, 0},
		To:       TimeOfDay{toHour, endMinute},
	}, true, nil
}

// standard handles a single minute and hour with either a day-of-month list
// or a day-of-week list.
func (f cronFields) standard() (Expr, bool, error) {
	t, err := f.time()
	if err != nil {
		return nil, false, err
	}
	times := []TimeOfDay{t}

	switch {
	case f.dom != "*" && f.dow != "*":
		return nil, false, cronError("DOM and DOW cannot both be restricted")
	case f.dom != "*":
		target, err := parseDOMField(f.dom)
		if err != nil {
			return nil, false, err
		}
		return MonthRepeat{Interval: 1, Target: target, Times: times}, true, nil
	default:
		days, err := parseDOWField(f.dow)
		if err != nil {
			return nil, false, err
		}
		return DayRepeat{Interval: 1, Days: days, Times: times}, true, nil
	}
}

func (f cronFields) time() (TimeOfDay, error) {
	minute, err := parseSingleValue(f.minute, "minute", 0, 59)
	if err != nil {
		return TimeOfDay{}, err
	}
	hour, err := parseSingleValue(f.hour, "hour", 0, 23)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{hour, minute}, nil
}

// =============================================================================
// Field parsing
// =============================================================================

// expandTerm expands one comma-separated term of a field: "*", "n", "a-b",
// "*/s", "a-b/s" or "a/s" (a through max). Values are read by value.
func expandTerm(term string, min, max int, value func(string) (int, error)) ([]int, error) {
	rangePart, stepPart, hasStep := strings.Cut(term, "/")
	step := 1
	if hasStep {
		var err error
		if step, err = parseStep(stepPart); err != nil {
			return nil, err
		}
	}

	var start, end int
	switch {
	case rangePart == "*":
		start, end = min, max
	case strings.Contains(rangePart, "-"):
		a, b, _ := strings.Cut(rangePart, "-")
		var err error
		if start, err = value(a); err != nil {
			return nil, err
		}
		if end, err = value(b); err != nil {
			return nil, err
		}
		if start > end {
			return nil, cronError("range start must be <= end: " + rangePart)
		}
	default:
		var err error
		if start, err = value(rangePart); err != nil {
			return nil, err
		}
		end = start
		if hasStep {
			end = max
		}
	}

	var out []int
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out, nil
}

func parseStep(s string) (int, error) {
	step, err := strconv.Atoi(s)
	if err != nil || step < 0 {
		return 0, cronError("invalid step value: " + s)
	}
	if step == 0 {
		return 0, cronError("step cannot be 0")
	}
	return step, nil
}

// stepRange reads the range part of a stepped minute or hour field.
func stepRange(s string, min, max int, name string) (int, int, error) {
	switch {
	case s == "*":
		return min, max, nil
	case strings.Contains(s, "-"):
		a, b, _ := strings.Cut(s, "-")
		start, err := parseCronNumber(a, name, min, max)
		if err != nil {
			return 0, 0, err
		}
		end, err := parseCronNumber(b, name, min, max)
		if err != nil {
			return 0, 0, err
		}
		if start > end {
			return 0, 0, cronError(fmt.Sprintf("range start must be <= end: %d-%d", start, end))
		}
		return start, end, nil
	default:
		start, err := parseCronNumber(s, name, min, max)
		return start, max, err
	}
}

func parseCronNumber(s, name string, min, max int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, cronError(fmt.Sprintf("invalid %s value: %s", name, s))
	}
	if n < min || n > max {
		return 0, cronError(fmt.Sprintf("%s must be %d-%d, got %d", name, min, max, n))
	}
	return n, nil
}

// parseSingleValue reads a field that must hold exactly one number.
func parseSingleValue(field, name string, min, max int) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, cronError(fmt.Sprintf("invalid %s field: %s", name, field))
	}
	if n < min || n > max {
		return 0, cronError(fmt.Sprintf("%s must be %d-%d, got %d", name, min, max, n))
	}
	return n, nil
}

func parseMonthField(field string) ([]time.Month, error) {
	if field == "*" {
		return nil, nil
	}
	var months []time.Month
	for _, term := range strings.Split(field, ",") {
		values, err := expandTerm(term, 1, 12, parseMonthValue)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if m := time.Month(v); !slices.Contains(months, m) {
				months = append(months, m)
			}
		}
	}
	return months, nil
}

var cronMonthNames = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

func parseMonthValue(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, cronError(fmt.Sprintf("invalid month: %s", s))
		}
		return n, nil
	}
	if n, ok := cronMonthNames[strings.ToUpper(s)]; ok {
		return n, nil
	}
	return 0, cronError("invalid month: " + s)
}

// parseDOMField keeps plain ranges as ranges and expands stepped terms.
func parseDOMField(field string) (MonthTarget, error) {
	var specs []DayRange
	for _, term := range strings.Split(field, ",") {
		if !strings.Contains(term, "/") && strings.Contains(term, "-") {
			a, b, _ := strings.Cut(term, "-")
			start, err := parseDOMValue(a)
			if err != nil {
				return nil, err
			}
			end, err := parseDOMValue(b)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, cronError(fmt.Sprintf("range start must be <= end: %d-%d", start, end))
			}
			specs = append(specs, DayRange{start, end})
			continue
		}

		days, err := expandTerm(term, 1, 31, parseDOMValue)
		if err != nil {
			return nil, err
		}
		for _, d := range days {
			specs = append(specs, DayRange{d, d})
		}
	}
	return DaysTarget{Specs: specs}, nil
}

func parseDOMValue(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, cronError("invalid DOM value: " + s)
	}
	if n < 1 || n > 31 {
		return 0, cronError(fmt.Sprintf("DOM must be 1-31, got %d", n))
	}
	return n, nil
}

// parseDOWField converts a day-of-week field to a filter, recognizing the
// Monday-Friday and Saturday-Sunday sets.
func parseDOWField(field string) (DayFilter, error) {
	if field == "*" {
		return DayFilter{Kind: EveryDay}, nil
	}

	var days []time.Weekday
	for _, term := range strings.Split(field, ",") {
		values, err := expandTerm(term, 0, 6, parseDOWValue)
		if err != nil {
			return DayFilter{}, err
		}
		for _, v := range values {
			// 7 is an alias for Sunday.
			if wd := time.Weekday(v % 7); !slices.Contains(days, wd) {
				days = append(days, wd)
			}
		}
	}

	switch {
	case sameWeekdays(days, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday):
		return DayFilter{Kind: Weekdays}, nil
	case sameWeekdays(days, time.Saturday, time.Sunday):
		return DayFilter{Kind: Weekends}, nil
	}
	return DayFilter{Kind: SpecificDays, Days: days}, nil
}

func sameWeekdays(days []time.Weekday, want ...time.Weekday) bool {
	if len(days) != len(want) {
		return false
	}
	for _, wd := range want {
		if !slices.Contains(days, wd) {
			return false
		}
	}
	return true
}

var cronDayNames = map[string]int{
	"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6,
}

// parseDOWValue reads 0-7 or SUN-SAT. 7 is returned as is so that ranges
// such as 5-7 expand correctly.
func parseDOWValue(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 7 {
			return 0, cronError(fmt.Sprintf("DOW must be 0-7, got %d", n))
		}
		return n, nil
	}
	if n, ok := cronDayNames[strings.ToUpper(s)]; ok {
		return n, nil
	}
	return 0, cronError("invalid DOW: " + s)
}
