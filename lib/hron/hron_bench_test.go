package hron

import (
	"testing"
	"time"
)

var benchExpressions = []string{
	"every day at 09:00",
	"every weekday at 09:00, 17:30 except dec 25 in America/New_York",
	"every 15 min from 09:00 to 17:00 on weekday",
	"every 2 weeks on monday, friday at 08:30",
	"last friday of every month at 17:00",
	"every year on feb 29 at 12:00",
}

func BenchmarkParse(b *testing.B) {
	for _, expr := range benchExpressions {
		b.Run(expr, func(b *testing.B) {
			for b.Loop() {
				if _, err := ParseData(expr); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkNextFrom(b *testing.B) {
	now := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)
	for _, expr := range benchExpressions {
		s := mustParse(b, expr)
		b.Run(expr, func(b *testing.B) {
			for b.Loop() {
				s.NextFrom(now)
			}
		})
	}
}

func BenchmarkNextNFrom_100(b *testing.B) {
	s := mustParse(b, "every 15 min from 09:00 to 17:00 on weekday")
	now := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)
	for b.Loop() {
		s.NextNFrom(now, 100)
	}
}

func BenchmarkMatches(b *testing.B) {
	s := mustParse(b, "every weekday at 09:00, 17:30 except dec 25")
	at := time.Date(2026, 2, 6, 17, 30, 0, 0, time.UTC)
	for b.Loop() {
		s.Matches(at)
	}
}
