package hron

import (
	"strconv"
	"strings"
	"time"
)

// TokenKind identifies the class of a lexed token.
type TokenKind int

const (
	TokenEvery TokenKind = iota
	TokenOn
	TokenAt
	TokenFrom
	TokenTo
	TokenIn
	TokenOf
	TokenThe
	TokenLast
	TokenExcept
	TokenUntil
	TokenStarting
	TokenDuring
	TokenYear
	TokenDay
	TokenWeekday
	TokenWeekend
	TokenWeek
	TokenMonth
	TokenNearest
	TokenNext
	TokenPrevious
	TokenDayName
	TokenMonthName
	TokenOrdinal
	TokenUnit
	TokenNumber
	TokenOrdinalNumber
	TokenTime
	TokenDate
	TokenComma
	TokenTimezone
)

// Token is a lexed unit of input. Only the value field matching Kind is set.
type Token struct {
	Kind TokenKind
	Span Span

	Weekday  time.Weekday
	Month    time.Month
	Ordinal  Ordinal
	Unit     IntervalUnit
	Number   int
	Time     TimeOfDay
	Date     string
	Timezone string
}

var keywords = map[string]Token{
	"every":    {Kind: TokenEvery},
	"on":       {Kind: TokenOn},
	"at":       {Kind: TokenAt},
	"from":     {Kind: TokenFrom},
	"to":       {Kind: TokenTo},
	"in":       {Kind: TokenIn},
	"of":       {Kind: TokenOf},
	"the":      {Kind: TokenThe},
	"last":     {Kind: TokenLast},
	"except":   {Kind: TokenExcept},
	"until":    {Kind: TokenUntil},
	"starting": {Kind: TokenStarting},
	"during":   {Kind: TokenDuring},
	"year":     {Kind: TokenYear},
	"years":    {Kind: TokenYear},
	"day":      {Kind: TokenDay},
	"days":     {Kind: TokenDay},
	"weekday":  {Kind: TokenWeekday},
	"weekdays": {Kind: TokenWeekday},
	"weekend":  {Kind: TokenWeekend},
	"weekends": {Kind: TokenWeekend},
	"week":     {Kind: TokenWeek},
	"weeks":    {Kind: TokenWeek},
	"month":    {Kind: TokenMonth},
	"months":   {Kind: TokenMonth},
	"nearest":  {Kind: TokenNearest},
	"next":     {Kind: TokenNext},
	"previous": {Kind: TokenPrevious},

	"first":  {Kind: TokenOrdinal, Ordinal: First},
	"second": {Kind: TokenOrdinal, Ordinal: Second},
	"third":  {Kind: TokenOrdinal, Ordinal: Third},
	"fourth": {Kind: TokenOrdinal, Ordinal: Fourth},
	"fifth":  {Kind: TokenOrdinal, Ordinal: Fifth},

	"min":     {Kind: TokenUnit, Unit: Minutes},
	"mins":    {Kind: TokenUnit, Unit: Minutes},
	"minute":  {Kind: TokenUnit, Unit: Minutes},
	"minutes": {Kind: TokenUnit, Unit: Minutes},
	"hour":    {Kind: TokenUnit, Unit: Hours},
	"hours":   {Kind: TokenUnit, Unit: Hours},
	"hr":      {Kind: TokenUnit, Unit: Hours},
	"hrs":     {Kind: TokenUnit, Unit: Hours},
}

func init() {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		keywords[name] = Token{Kind: TokenDayName, Weekday: wd}
		keywords[name[:3]] = Token{Kind: TokenDayName, Weekday: wd}
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		keywords[name] = Token{Kind: TokenMonthName, Month: m}
		keywords[name[:3]] = Token{Kind: TokenMonthName, Month: m}
	}
}

type lexer struct {
	input   string
	pos     int
	afterIn bool
}

// Tokenize splits input into tokens. The word following "in" is taken
// verbatim as a timezone name.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	var tokens []Token

	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return tokens, nil
		}

		var (
			tok Token
			err error
		)
		ch := l.input[l.pos]
		switch {
		case l.afterIn:
			l.afterIn = false
			tok = l.lexTimezone()
		case ch == ',':
			tok = Token{Kind: TokenComma, Span: Span{l.pos, l.pos + 1}}
			l.pos++
		case isDigit(ch):
			tok, err = l.lexNumeric()
		case isAlpha(ch):
			tok, err = l.lexWord()
		default:
			return nil, lexError("unexpected character '"+string(ch)+"'", Span{l.pos, l.pos + 1}, input)
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) lexTimezone() Token {
	start := l.pos
	for l.pos < len(l.input) && !isSpace(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: TokenTimezone, Span: Span{start, l.pos}, Timezone: l.input[start:l.pos]}
}

// lexNumeric scans an ISO date, an HH:MM time, or a plain or ordinal number.
func (l *lexer) lexNumeric() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	digits := l.input[start:l.pos]

	if len(digits) == 4 && l.peekByte() == '-' && isDateShape(l.input[start:]) {
		l.pos = start + 10
		return Token{Kind: TokenDate, Span: Span{start, l.pos}, Date: l.input[start:l.pos]}, nil
	}

	if len(digits) <= 2 && l.peekByte() == ':' {
		minStart := l.pos + 1
		end := minStart
		for end < len(l.input) && isDigit(l.input[end]) {
			end++
		}
		if end-minStart == 2 {
			l.pos = end
			hour, _ := strconv.Atoi(digits)
			minute, _ := strconv.Atoi(l.input[minStart:end])
			if hour > 23 || minute > 59 {
				return Token{}, lexError("invalid time", Span{start, end}, l.input)
			}
			return Token{Kind: TokenTime, Span: Span{start, end}, Time: TimeOfDay{hour, minute}}, nil
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return Token{}, lexError("invalid number", Span{start, l.pos}, l.input)
	}

	if l.pos+2 <= len(l.input) {
		switch strings.ToLower(l.input[l.pos : l.pos+2]) {
		case "st", "nd", "rd", "th":
			l.pos += 2
			return Token{Kind: TokenOrdinalNumber, Span: Span{start, l.pos}, Number: n}, nil
		}
	}
	return Token{Kind: TokenNumber, Span: Span{start, l.pos}, Number: n}, nil
}

func (l *lexer) lexWord() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && (isAlpha(l.input[l.pos]) || isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
		l.pos++
	}
	word := strings.ToLower(l.input[start:l.pos])
	span := Span{start, l.pos}

	tok, ok := keywords[word]
	if !ok {
		return Token{}, lexError("unknown keyword '"+word+"'", span, l.input)
	}
	tok.Span = span
	if tok.Kind == TokenIn {
		l.afterIn = true
	}
	return tok, nil
}

func (l *lexer) peekByte() byte {
	if l.pos < len(l.input) {
		return l.input[l.pos]
	}
	return 0
}

// isDateShape reports whether s starts with YYYY-MM-DD.
func isDateShape(s string) bool {
	if len(s) < 10 {
		return false
	}
	for i := 0; i < 10; i++ {
		switch i {
		case 4, 7:
			if s[i] != '-' {
				return false
			}
		default:
			if !isDigit(s[i]) {
				return false
			}
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
