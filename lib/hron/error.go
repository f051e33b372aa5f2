package hron

import (
	"errors"
	"strings"
)

// ErrorKind classifies an Error by the stage that produced it.
type ErrorKind string

const (
	KindLex   ErrorKind = "lex"
	KindParse ErrorKind = "parse"
	KindEval  ErrorKind = "eval"
	KindCron  ErrorKind = "cron"
)

// Sentinel errors matched by errors.Is against any *Error of the same kind.
var (
	ErrLex   = errors.New("hron: lex error")
	ErrParse = errors.New("hron: parse error")
	ErrEval  = errors.New("hron: eval error")
	ErrCron  = errors.New("hron: cron error")
)

// Span is a half-open byte range [Start, End) into the input.
type Span struct {
	Start int
	End   int
}

// Error is the error type returned by every operation in this package.
// Lex and parse errors carry the span and input they refer to.
type Error struct {
	Kind       ErrorKind
	Message    string
	Span       *Span
	Input      string
	Suggestion string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind sentinel so callers can use errors.Is(err, ErrParse).
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindLex:
		return ErrLex
	case KindParse:
		return ErrParse
	case KindEval:
		return ErrEval
	case KindCron:
		return ErrCron
	default:
		return nil
	}
}

// DisplayRich renders the error with the offending input underlined:
//
//	error: unknown keyword 'evry'
//	  evry day at 09:00
//	  ^^^^
func (e *Error) DisplayRich() string {
	if (e.Kind != KindLex && e.Kind != KindParse) || e.Span == nil || e.Input == "" {
		return "error: " + e.Message
	}

	var sb strings.Builder
	sb.WriteString("error: ")
	sb.WriteString(e.Message)
	sb.WriteString("\n  ")
	sb.WriteString(e.Input)
	sb.WriteString("\n  ")
	sb.WriteString(strings.Repeat(" ", e.Span.Start))
	sb.WriteString(strings.Repeat("^", max(e.Span.End-e.Span.Start, 1)))
	if e.Suggestion != "" {
		sb.WriteString(" try: \"")
		sb.WriteString(e.Suggestion)
		sb.WriteString("\"")
	}
	return sb.String()
}

func lexError(msg string, span Span, input string) *Error {
	return &Error{Kind: KindLex, Message: msg, Span: &span, Input: input}
}

func parseError(msg string, span Span, input, suggestion string) *Error {
	return &Error{Kind: KindParse, Message: msg, Span: &span, Input: input, Suggestion: suggestion}
}

func evalError(msg string) *Error {
	return &Error{Kind: KindEval, Message: msg}
}

func cronError(msg string) *Error {
	return &Error{Kind: KindCron, Message: msg}
}
