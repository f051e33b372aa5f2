package hron

import (
	"fmt"
	"strings"
	"time"
)

// clauseKind orders the trailing clauses. A clause may only follow clauses
// with a lower kind.
type clauseKind int

const (
	clauseExcept clauseKind = iota
	clauseUntil
	clauseStarting
	clauseDuring
	clauseIn
)

var clauseNames = [...]string{"except", "until", "starting", "during", "in"}

func (c clauseKind) String() string {
	return clauseNames[c]
}

var clauseTokens = map[TokenKind]clauseKind{
	TokenExcept:   clauseExcept,
	TokenUntil:    clauseUntil,
	TokenStarting: clauseStarting,
	TokenDuring:   clauseDuring,
	TokenIn:       clauseIn,
}

type parser struct {
	tokens []Token
	pos    int
	input  string

	// zoneSpan is the span of the timezone token, if any.
	zoneSpan *Span
}

// ParseData parses an expression into its syntax tree without resolving the
// timezone.
func ParseData(input string) (*ScheduleData, error) {
	data, _, err := parse(input)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func parse(input string) (*ScheduleData, *parser, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, nil, err
	}
	if len(tokens) == 0 {
		return nil, nil, parseError("empty expression", Span{0, 0}, input, "")
	}

	p := &parser{tokens: tokens, input: input}
	data, err := p.parseExpression()
	if err != nil {
		return nil, nil, err
	}
	if p.peek() != nil {
		return nil, nil, p.errorf(p.currentSpan(), "unexpected tokens after expression")
	}
	return data, p, nil
}

// =============================================================================
// Cursor helpers
// =============================================================================

func (p *parser) peek() *Token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *parser) peekKind() (TokenKind, bool) {
	if tok := p.peek(); tok != nil {
		return tok.Kind, true
	}
	return 0, false
}

func (p *parser) at(kind TokenKind) bool {
	k, ok := p.peekKind()
	return ok && k == kind
}

func (p *parser) advance() *Token {
	tok := p.peek()
	if tok != nil {
		p.pos++
	}
	return tok
}

// currentSpan is the span of the next token, or a zero-width span at the end
// of the last token when input is exhausted.
func (p *parser) currentSpan() Span {
	if tok := p.peek(); tok != nil {
		return tok.Span
	}
	end := p.tokens[len(p.tokens)-1].Span.End
	return Span{end, end}
}

func (p *parser) errorf(span Span, format string, args ...any) error {
	return parseError(fmt.Sprintf(format, args...), span, p.input, "")
}

// fail reports msg at the next token.
func (p *parser) fail(msg string) error {
	return p.errorf(p.currentSpan(), "%s", msg)
}

func (p *parser) consume(expected string, kind TokenKind) (*Token, error) {
	if p.at(kind) {
		return p.advance(), nil
	}
	return nil, p.fail("expected " + expected)
}

// =============================================================================
// Expressions
// =============================================================================

func (p *parser) parseExpression() (*ScheduleData, error) {
	var (
		expr Expr
		err  error
	)

	kind, _ := p.peekKind()
	switch kind {
	case TokenEvery:
		p.advance()
		expr, err = p.parseEvery()
	case TokenOn:
		p.advance()
		expr, err = p.parseOn()
	case TokenOrdinal, TokenLast:
		expr, err = p.parseOrdinalRepeat()
	default:
		return nil, p.fail("expected 'every', 'on', or an ordinal (first, second, ...)")
	}
	if err != nil {
		return nil, err
	}

	data := &ScheduleData{Expr: expr}
	if err := p.parseTrailingClauses(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *parser) parseEvery() (Expr, error) {
	kind, ok := p.peekKind()
	if !ok {
		return nil, p.fail("expected repeater")
	}

	switch kind {
	case TokenYear:
		p.advance()
		return p.parseYearRepeat(1)
	case TokenDay:
		return p.parseDayRepeat(1, DayFilter{Kind: EveryDay})
	case TokenWeekday:
		p.advance()
		return p.parseDayRepeat(1, DayFilter{Kind: Weekdays})
	case TokenWeekend:
		p.advance()
		return p.parseDayRepeat(1, DayFilter{Kind: Weekends})
	case TokenDayName:
		days, err := p.parseDayList()
		if err != nil {
			return nil, err
		}
		return p.parseDayRepeat(1, DayFilter{Kind: SpecificDays, Days: days})
	case TokenMonth:
		p.advance()
		return p.parseMonthRepeat(1)
	case TokenNumber:
		return p.parseNumberRepeat()
	default:
		return nil, p.fail("expected day, weekday, weekend, year, day name, month, or number after 'every'")
	}
}

func (p *parser) parseDayRepeat(interval int, days DayFilter) (Expr, error) {
	if days.Kind == EveryDay {
		if _, err := p.consume("'day'", TokenDay); err != nil {
			return nil, err
		}
	}
	times, err := p.parseAtTimes()
	if err != nil {
		return nil, err
	}
	return DayRepeat{Interval: interval, Days: days, Times: times}, nil
}

func (p *parser) parseNumberRepeat() (Expr, error) {
	interval, err := p.parseInterval()
	if err != nil {
		return nil, err
	}

	switch {
	case p.at(TokenWeek):
		p.advance()
		return p.parseWeekRepeat(interval)
	case p.at(TokenUnit):
		return p.parseIntervalRepeat(interval)
	case p.at(TokenDay):
		return p.parseDayRepeat(interval, DayFilter{Kind: EveryDay})
	case p.at(TokenMonth):
		p.advance()
		return p.parseMonthRepeat(interval)
	case p.at(TokenYear):
		p.advance()
		return p.parseYearRepeat(interval)
	default:
		return nil, p.fail("expected 'weeks', 'min', 'minutes', 'hour', 'hours', 'day(s)', 'month(s)', or 'year(s)' after number")
	}
}

// parseInterval consumes a repeat count, which must be at least 1.
func (p *parser) parseInterval() (int, error) {
	tok, err := p.consume("number", TokenNumber)
	if err != nil {
		return 0, err
	}
	if tok.Number < 1 {
		return 0, p.errorf(tok.Span, "interval must be at least 1")
	}
	return tok.Number, nil
}

func (p *parser) parseIntervalRepeat(interval int) (Expr, error) {
	unit := p.advance().Unit

	if _, err := p.consume("'from'", TokenFrom); err != nil {
		return nil, err
	}
	from, err := p.parseTime()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume("'to'", TokenTo); err != nil {
		return nil, err
	}
	to, err := p.parseTime()
	if err != nil {
		return nil, err
	}

	expr := IntervalRepeat{Interval: interval, Unit: unit, From: from, To: to}
	if p.at(TokenOn) {
		p.advance()
		filter, err := p.parseDayTarget()
		if err != nil {
			return nil, err
		}
		expr.Days = &filter
	}
	return expr, nil
}

func (p *parser) parseWeekRepeat(interval int) (Expr, error) {
	if _, err := p.consume("'on'", TokenOn); err != nil {
		return nil, err
	}
	days, err := p.parseDayList()
	if err != nil {
		return nil, err
	}
	times, err := p.parseAtTimes()
	if err != nil {
		return nil, err
	}
	return WeekRepeat{Interval: interval, Days: days, Times: times}, nil
}

func (p *parser) parseMonthRepeat(interval int) (Expr, error) {
	if _, err := p.consume("'on'", TokenOn); err != nil {
		return nil, err
	}
	if _, err := p.consume("'the'", TokenThe); err != nil {
		return nil, err
	}

	target, err := p.parseMonthTarget()
	if err != nil {
		return nil, err
	}
	times, err := p.parseAtTimes()
	if err != nil {
		return nil, err
	}
	return MonthRepeat{Interval: interval, Target: target, Times: times}, nil
}

func (p *parser) parseMonthTarget() (MonthTarget, error) {
	switch {
	case p.at(TokenLast):
		p.advance()
		switch {
		case p.at(TokenDay):
			p.advance()
			return LastDayTarget{}, nil
		case p.at(TokenWeekday):
			p.advance()
			return LastWeekdayTarget{}, nil
		case p.at(TokenDayName):
			return OrdinalWeekdayTarget{Ordinal: Last, Weekday: p.advance().Weekday}, nil
		default:
			return nil, p.fail("expected 'day', 'weekday', or day name after 'last'")
		}
	case p.at(TokenOrdinal):
		ord := p.advance().Ordinal
		tok, err := p.consume("day name after ordinal", TokenDayName)
		if err != nil {
			return nil, err
		}
		return OrdinalWeekdayTarget{Ordinal: ord, Weekday: tok.Weekday}, nil
	case p.at(TokenOrdinalNumber):
		specs, err := p.parseOrdinalDayList()
		if err != nil {
			return nil, err
		}
		return DaysTarget{Specs: specs}, nil
	case p.at(TokenNext), p.at(TokenPrevious), p.at(TokenNearest):
		return p.parseNearestWeekdayTarget()
	}
	return nil, p.fail("expected ordinal day (1st, 15th), 'last', or '[next|previous] nearest' after 'the'")
}

func (p *parser) parseNearestWeekdayTarget() (MonthTarget, error) {
	dir := NearestAny
	switch {
	case p.at(TokenNext):
		p.advance()
		dir = NearestNext
	case p.at(TokenPrevious):
		p.advance()
		dir = NearestPrevious
	}

	if _, err := p.consume("'nearest'", TokenNearest); err != nil {
		return nil, err
	}
	if _, err := p.consume("'weekday'", TokenWeekday); err != nil {
		return nil, err
	}
	if _, err := p.consume("'to'", TokenTo); err != nil {
		return nil, err
	}
	day, err := p.parseOrdinalDay()
	if err != nil {
		return nil, err
	}
	return NearestWeekdayTarget{Day: day, Direction: dir}, nil
}

func (p *parser) parseOrdinalRepeat() (Expr, error) {
	ord, err := p.parseOrdinal()
	if err != nil {
		return nil, err
	}
	tok, err := p.consume("day name after ordinal", TokenDayName)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume("'of'", TokenOf); err != nil {
		return nil, err
	}
	if _, err := p.consume("'every'", TokenEvery); err != nil {
		return nil, err
	}

	interval := 1
	if p.at(TokenNumber) {
		if interval, err = p.parseInterval(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume("'month'", TokenMonth); err != nil {
		return nil, err
	}
	times, err := p.parseAtTimes()
	if err != nil {
		return nil, err
	}
	return OrdinalRepeat{Interval: interval, Ordinal: ord, Weekday: tok.Weekday, Times: times}, nil
}

func (p *parser) parseYearRepeat(interval int) (Expr, error) {
	if _, err := p.consume("'on'", TokenOn); err != nil {
		return nil, err
	}

	var target YearTarget
	switch {
	case p.at(TokenThe):
		p.advance()
		t, err := p.parseYearTargetAfterThe()
		if err != nil {
			return nil, err
		}
		target = t
	case p.at(TokenMonthName):
		month, day, err := p.parseMonthDay()
		if err != nil {
			return nil, err
		}
		target = YearDateTarget{Month: month, Day: day}
	default:
		return nil, p.fail("expected month name or 'the' after 'every year on'")
	}

	times, err := p.parseAtTimes()
	if err != nil {
		return nil, err
	}
	return YearRepeat{Interval: interval, Target: target, Times: times}, nil
}

func (p *parser) parseYearTargetAfterThe() (YearTarget, error) {
	switch {
	case p.at(TokenLast):
		p.advance()
		switch {
		case p.at(TokenWeekday):
			p.advance()
			month, err := p.parseOfMonth()
			if err != nil {
				return nil, err
			}
			return YearLastWeekdayTarget{Month: month}, nil
		case p.at(TokenDayName):
			wd := p.advance().Weekday
			month, err := p.parseOfMonth()
			if err != nil {
				return nil, err
			}
			return YearOrdinalTarget{Ordinal: Last, Weekday: wd, Month: month}, nil
		default:
			return nil, p.fail("expected 'weekday' or day name after 'last' in yearly expression")
		}

	case p.at(TokenOrdinal):
		ord := p.advance().Ordinal
		if !p.at(TokenDayName) {
			return nil, p.fail("expected day name after ordinal in yearly expression")
		}
		wd := p.advance().Weekday
		month, err := p.parseOfMonth()
		if err != nil {
			return nil, err
		}
		return YearOrdinalTarget{Ordinal: ord, Weekday: wd, Month: month}, nil

	case p.at(TokenOrdinalNumber):
		tok := p.advance()
		month, err := p.parseOfMonth()
		if err != nil {
			return nil, err
		}
		if !validDate(2000, month, tok.Number) {
			return nil, p.errorf(tok.Span, "invalid day %d for %s", tok.Number, monthShort(month))
		}
		return YearDayTarget{Day: tok.Number, Month: month}, nil

	default:
		return nil, p.fail("expected ordinal, day number, or 'last' after 'the' in yearly expression")
	}
}

func (p *parser) parseOfMonth() (time.Month, error) {
	if _, err := p.consume("'of'", TokenOf); err != nil {
		return 0, err
	}
	tok, err := p.consume("month name", TokenMonthName)
	if err != nil {
		return 0, err
	}
	return tok.Month, nil
}

func (p *parser) parseOrdinal() (Ordinal, error) {
	switch {
	case p.at(TokenOrdinal):
		return p.advance().Ordinal, nil
	case p.at(TokenLast):
		p.advance()
		return Last, nil
	default:
		return 0, p.fail("expected ordinal (first, second, third, fourth, fifth, last)")
	}
}

func (p *parser) parseOn() (Expr, error) {
	date, err := p.parseDateSpec("expected date (ISO date or month name)")
	if err != nil {
		return nil, err
	}
	times, err := p.parseAtTimes()
	if err != nil {
		return nil, err
	}
	return SingleDate{Date: date, Times: times}, nil
}

// =============================================================================
// Trailing clauses
// =============================================================================

func (p *parser) parseTrailingClauses(data *ScheduleData) error {
	var seen [len(clauseNames)]bool
	latest := clauseKind(-1)

	for {
		kind, ok := p.peekKind()
		if !ok {
			return nil
		}
		clause, ok := clauseTokens[kind]
		if !ok {
			return nil
		}
		span := p.currentSpan()

		if seen[clause] {
			return parseError(fmt.Sprintf("duplicate '%s' clause", clause), span, p.input, "")
		}
		if clause < latest {
			return parseError(
				fmt.Sprintf("'%s' clause must come before '%s'", clause, latest),
				span, p.input, clauseOrderHint(seen, clause),
			)
		}
		seen[clause] = true
		latest = clause
		p.advance()

		if err := p.parseClause(clause, data); err != nil {
			return err
		}
	}
}

// clauseOrderHint lists the clauses used so far in their required order.
func clauseOrderHint(seen [len(clauseNames)]bool, extra clauseKind) string {
	seen[extra] = true
	var parts []string
	for c, ok := range seen {
		if ok {
			parts = append(parts, clauseNames[c]+" ...")
		}
	}
	return "<expr> " + strings.Join(parts, " ")
}

func (p *parser) parseClause(clause clauseKind, data *ScheduleData) error {
	switch clause {
	case clauseExcept:
		for {
			spec, err := p.parseDateSpec("expected ISO date or month-day in exception")
			if err != nil {
				return err
			}
			data.Except = append(data.Except, spec)
			if !p.at(TokenComma) {
				return nil
			}
			p.advance()
		}

	case clauseUntil:
		spec, err := p.parseDateSpec("expected ISO date or month-day after 'until'")
		if err != nil {
			return err
		}
		data.Until = &spec

	case clauseStarting:
		if !p.at(TokenDate) {
			return p.fail("expected ISO date (YYYY-MM-DD) after 'starting'")
		}
		d, err := p.parseISODate()
		if err != nil {
			return err
		}
		data.Anchor = &d

	case clauseDuring:
		months, err := p.parseMonthList()
		if err != nil {
			return err
		}
		data.During = months

	case clauseIn:
		if !p.at(TokenTimezone) {
			return p.fail("expected timezone after 'in'")
		}
		tok := p.advance()
		data.Timezone = tok.Timezone
		span := tok.Span
		p.zoneSpan = &span
	}
	return nil
}

// =============================================================================
// Lists and leaves
// =============================================================================

// parseDateSpec accepts an ISO date or a month name followed by a day.
func (p *parser) parseDateSpec(msg string) (DateSpec, error) {
	switch {
	case p.at(TokenDate):
		d, err := p.parseISODate()
		if err != nil {
			return DateSpec{}, err
		}
		return OnDate(d), nil
	case p.at(TokenMonthName):
		month, day, err := p.parseMonthDay()
		if err != nil {
			return DateSpec{}, err
		}
		return Named(month, day), nil
	default:
		return DateSpec{}, p.fail(msg)
	}
}

func (p *parser) parseISODate() (Date, error) {
	tok := p.advance()
	d, err := ParseDate(tok.Date)
	if err != nil {
		return Date{}, p.errorf(tok.Span, "invalid date: %s", tok.Date)
	}
	return d, nil
}

// parseMonthDay parses "<month> <day>". The day must exist in at least one
// year, so feb 29 is accepted and feb 30 is not.
func (p *parser) parseMonthDay() (time.Month, int, error) {
	start := p.currentSpan().Start
	month := p.advance().Month

	if !p.at(TokenNumber) && !p.at(TokenOrdinalNumber) {
		return 0, 0, p.fail("expected day number after month name")
	}
	tok := p.advance()
	if !validDate(2000, month, tok.Number) {
		return 0, 0, p.errorf(Span{start, tok.Span.End}, "invalid date: %s %d", monthShort(month), tok.Number)
	}
	return month, tok.Number, nil
}

func (p *parser) parseDayTarget() (DayFilter, error) {
	switch {
	case p.at(TokenDay):
		p.advance()
		return DayFilter{Kind: EveryDay}, nil
	case p.at(TokenWeekday):
		p.advance()
		return DayFilter{Kind: Weekdays}, nil
	case p.at(TokenWeekend):
		p.advance()
		return DayFilter{Kind: Weekends}, nil
	case p.at(TokenDayName):
		days, err := p.parseDayList()
		if err != nil {
			return DayFilter{}, err
		}
		return DayFilter{Kind: SpecificDays, Days: days}, nil
	default:
		return DayFilter{}, p.fail("expected 'day', 'weekday', 'weekend', or day name")
	}
}

func (p *parser) parseDayList() ([]time.Weekday, error) {
	tok, err := p.consume("day name", TokenDayName)
	if err != nil {
		return nil, err
	}
	days := []time.Weekday{tok.Weekday}
	for p.at(TokenComma) {
		p.advance()
		tok, err := p.consume("day name after ','", TokenDayName)
		if err != nil {
			return nil, err
		}
		days = append(days, tok.Weekday)
	}
	return days, nil
}

func (p *parser) parseOrdinalDayList() ([]DayRange, error) {
	var specs []DayRange
	for {
		start, err := p.parseOrdinalDay()
		if err != nil {
			return nil, err
		}
		spec := DayRange{Start: start, End: start}

		if p.at(TokenTo) {
			p.advance()
			span := p.currentSpan()
			end, err := p.parseOrdinalDay()
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, p.errorf(span, "invalid day range: %s to %s", ordinalDay(start), ordinalDay(end))
			}
			spec.End = end
		}
		specs = append(specs, spec)

		if !p.at(TokenComma) {
			return specs, nil
		}
		p.advance()
	}
}

// parseOrdinalDay consumes a day of the month written "15th".
func (p *parser) parseOrdinalDay() (int, error) {
	tok, err := p.consume("ordinal day number", TokenOrdinalNumber)
	if err != nil {
		return 0, err
	}
	if tok.Number < 1 || tok.Number > 31 {
		return 0, p.errorf(tok.Span, "invalid day of month: %d", tok.Number)
	}
	return tok.Number, nil
}

func (p *parser) parseMonthList() ([]time.Month, error) {
	var months []time.Month
	for {
		tok, err := p.consume("month name", TokenMonthName)
		if err != nil {
			return nil, err
		}
		months = append(months, tok.Month)
		if !p.at(TokenComma) {
			return months, nil
		}
		p.advance()
	}
}

func (p *parser) parseAtTimes() ([]TimeOfDay, error) {
	if _, err := p.consume("'at'", TokenAt); err != nil {
		return nil, err
	}
	var times []TimeOfDay
	for {
		t, err := p.parseTime()
		if err != nil {
			return nil, err
		}
		times = append(times, t)
		if !p.at(TokenComma) {
			return times, nil
		}
		p.advance()
	}
}

func (p *parser) parseTime() (TimeOfDay, error) {
	tok, err := p.consume("time (HH:MM)", TokenTime)
	if err != nil {
		return TimeOfDay{}, err
	}
	return tok.Time, nil
}
