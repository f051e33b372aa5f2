package hron

import (
	"errors"
	"testing"
	"time"
)

func tokenKinds(t *testing.T, input string) []TokenKind {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q) unexpected error: %v", input, err)
	}
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestTokenize_Kinds(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
	}{
		{"every day at 09:00", []TokenKind{TokenEvery, TokenDay, TokenAt, TokenTime}},
		{"every 30 min from 09:00 to 17:00", []TokenKind{TokenEvery, TokenNumber, TokenUnit, TokenFrom, TokenTime, TokenTo, TokenTime}},
		{"on 2025-03-15 at 10:00", []TokenKind{TokenOn, TokenDate, TokenAt, TokenTime}},
		{"every month on the 1st, 15th at 12:00", []TokenKind{TokenEvery, TokenMonth, TokenOn, TokenThe, TokenOrdinalNumber, TokenComma, TokenOrdinalNumber, TokenAt, TokenTime}},
		{"last friday of every month at 17:00", []TokenKind{TokenLast, TokenDayName, TokenOf, TokenEvery, TokenMonth, TokenAt, TokenTime}},
		{"every day at 9:00 in Europe/London", []TokenKind{TokenEvery, TokenDay, TokenAt, TokenTime, TokenIn, TokenTimezone}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			actual := tokenKinds(t, tt.input)
			if len(actual) != len(tt.expected) {
				t.Fatalf("expected %d tokens, got %d (%v)", len(tt.expected), len(actual), actual)
			}
			for i := range tt.expected {
				if actual[i] != tt.expected[i] {
					t.Errorf("token[%d]: expected %d, got %d", i, tt.expected[i], actual[i])
				}
			}
		})
	}
}

func TestTokenize_Values(t *testing.T) {
	tokens, err := Tokenize("EVERY Mon at 23:59 in America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[1].Weekday != time.Monday {
		t.Errorf("expected monday, got %v", tokens[1].Weekday)
	}
	if tokens[3].Time != (TimeOfDay{23, 59}) {
		t.Errorf("expected 23:59, got %v", tokens[3].Time)
	}
	if tokens[5].Timezone != "America/New_York" {
		t.Errorf("expected timezone to keep its case, got %q", tokens[5].Timezone)
	}
	if tokens[5].Span != (Span{22, 38}) {
		t.Errorf("unexpected timezone span %+v", tokens[5].Span)
	}
}

func TestTokenize_OrdinalNumbers(t *testing.T) {
	tokens, err := Tokenize("1st 2nd 3RD 21st 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []struct {
		kind TokenKind
		n    int
	}{
		{TokenOrdinalNumber, 1},
		{TokenOrdinalNumber, 2},
		{TokenOrdinalNumber, 3},
		{TokenOrdinalNumber, 21},
		{TokenNumber, 5},
	}
	for i, want := range expected {
		if tokens[i].Kind != want.kind || tokens[i].Number != want.n {
			t.Errorf("token[%d]: expected kind %d number %d, got kind %d number %d",
				i, want.kind, want.n, tokens[i].Kind, tokens[i].Number)
		}
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		span    Span
	}{
		{"evry day", "unknown keyword 'evry'", Span{0, 4}},
		{"every day at 25:00", "invalid time", Span{13, 18}},
		{"every day at 09:00 !", "unexpected character '!'", Span{19, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			var herr *Error
			if !errors.As(err, &herr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if herr.Kind != KindLex {
				t.Errorf("expected lex error, got %s", herr.Kind)
			}
			if herr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, herr.Message)
			}
			if herr.Span == nil || *herr.Span != tt.span {
				t.Errorf("expected span %+v, got %+v", tt.span, herr.Span)
			}
			if !errors.Is(err, ErrLex) {
				t.Error("expected errors.Is(err, ErrLex)")
			}
		})
	}
}
