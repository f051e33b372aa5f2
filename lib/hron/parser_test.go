package hron

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func mustParseData(t *testing.T, input string) *ScheduleData {
	t.Helper()
	data, err := ParseData(input)
	if err != nil {
		t.Fatalf("ParseData(%q) unexpected error: %v", input, err)
	}
	return data
}

func TestParseData_Expressions(t *testing.T) {
	times := func(ts ...TimeOfDay) []TimeOfDay { return ts }
	nine := TimeOfDay{9, 0}

	tests := []struct {
		input    string
		expected Expr
	}{
		{"every day at 09:00", DayRepeat{Interval: 1, Days: DayFilter{Kind: EveryDay}, Times: times(nine)}},
		{"every weekday at 09:00, 17:30", DayRepeat{Interval: 1, Days: DayFilter{Kind: Weekdays}, Times: times(nine, TimeOfDay{17, 30})}},
		{"every weekend at 09:00", DayRepeat{Interval: 1, Days: DayFilter{Kind: Weekends}, Times: times(nine)}},
		{"every mon, wed at 09:00", DayRepeat{Interval: 1, Days: DayFilter{Kind: SpecificDays, Days: []time.Weekday{time.Monday, time.Wednesday}}, Times: times(nine)}},
		{"every 3 days at 09:00", DayRepeat{Interval: 3, Days: DayFilter{Kind: EveryDay}, Times: times(nine)}},
		{"every 30 min from 09:00 to 17:00", IntervalRepeat{Interval: 30, Unit: Minutes, From: nine, To: TimeOfDay{17, 0}}},
		{"every 2 hours from 00:00 to 23:59 on weekday", IntervalRepeat{Interval: 2, Unit: Hours, From: TimeOfDay{}, To: TimeOfDay{23, 59}, Days: &DayFilter{Kind: Weekdays}}},
		{"every 2 weeks on monday, friday at 08:30", WeekRepeat{Interval: 2, Days: []time.Weekday{time.Monday, time.Friday}, Times: times(TimeOfDay{8, 30})}},
		{"every month on the 1st, 10th to 15th at 09:00", MonthRepeat{Interval: 1, Target: DaysTarget{Specs: []DayRange{{1, 1}, {10, 15}}}, Times: times(nine)}},
		{"every 3 months on the last day at 09:00", MonthRepeat{Interval: 3, Target: LastDayTarget{}, Times: times(nine)}},
		{"every month on the last weekday at 09:00", MonthRepeat{Interval: 1, Target: LastWeekdayTarget{}, Times: times(nine)}},
		{"every month on the last friday at 09:00", MonthRepeat{Interval: 1, Target: OrdinalWeekdayTarget{Ordinal: Last, Weekday: time.Friday}, Times: times(nine)}},
		{"every month on the second tuesday at 09:00", MonthRepeat{Interval: 1, Target: OrdinalWeekdayTarget{Ordinal: Second, Weekday: time.Tuesday}, Times: times(nine)}},
		{"every month on the nearest weekday to 15th at 09:00", MonthRepeat{Interval: 1, Target: NearestWeekdayTarget{Day: 15, Direction: NearestAny}, Times: times(nine)}},
		{"every month on the next nearest weekday to 1st at 09:00", MonthRepeat{Interval: 1, Target: NearestWeekdayTarget{Day: 1, Direction: NearestNext}, Times: times(nine)}},
		{"first monday of every month at 10:00", OrdinalRepeat{Interval: 1, Ordinal: First, Weekday: time.Monday, Times: times(TimeOfDay{10, 0})}},
		{"last friday of every 2 months at 17:00", OrdinalRepeat{Interval: 2, Ordinal: Last, Weekday: time.Friday, Times: times(TimeOfDay{17, 0})}},
		{"on 2025-03-15 at 10:00", SingleDate{Date: OnDate(Date{2025, time.March, 15}), Times: times(TimeOfDay{10, 0})}},
		{"on dec 25 at 08:00", SingleDate{Date: Named(time.December, 25), Times: times(TimeOfDay{8, 0})}},
		{"every year on dec 25 at 00:00", YearRepeat{Interval: 1, Target: YearDateTarget{Month: time.December, Day: 25}, Times: times(TimeOfDay{})}},
		{"every 2 years on the first monday of mar at 09:00", YearRepeat{Interval: 2, Target: YearOrdinalTarget{Ordinal: First, Weekday: time.Monday, Month: time.March}, Times: times(nine)}},
		{"every year on the 15th of jun at 09:00", YearRepeat{Interval: 1, Target: YearDayTarget{Day: 15, Month: time.June}, Times: times(nine)}},
		{"every year on the last weekday of dec at 09:00", YearRepeat{Interval: 1, Target: YearLastWeekdayTarget{Month: time.December}, Times: times(nine)}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			data := mustParseData(t, tt.input)
			if !reflect.DeepEqual(data.Expr, tt.expected) {
				t.Errorf("expected %#v, got %#v", tt.expected, data.Expr)
			}
		})
	}
}

func TestParseData_TrailingClauses(t *testing.T) {
	data := mustParseData(t, "every day at 09:00 except dec 25, 2025-01-01 until 2025-12-31 starting 2025-01-06 during jan, dec in UTC")

	expectedExcept := []DateSpec{Named(time.December, 25), OnDate(Date{2025, time.January, 1})}
	if !reflect.DeepEqual(data.Except, expectedExcept) {
		t.Errorf("expected except %v, got %v", expectedExcept, data.Except)
	}
	if data.Until == nil || *data.Until != OnDate(Date{2025, time.December, 31}) {
		t.Errorf("unexpected until %v", data.Until)
	}
	if data.Anchor == nil || *data.Anchor != (Date{2025, time.January, 6}) {
		t.Errorf("unexpected anchor %v", data.Anchor)
	}
	if !reflect.DeepEqual(data.During, []time.Month{time.January, time.December}) {
		t.Errorf("unexpected during %v", data.During)
	}
	if data.Timezone != "UTC" {
		t.Errorf("expected timezone UTC, got %q", data.Timezone)
	}
}

func TestParseData_LeapDayAccepted(t *testing.T) {
	mustParseData(t, "every year on feb 29 at 12:00")
	mustParseData(t, "every day at 09:00 except feb 29")
}

func TestParseData_Errors(t *testing.T) {
	tests := []struct {
		input      string
		message    string
		span       Span
		suggestion string
	}{
		{"", "empty expression", Span{0, 0}, ""},
		{"day at 09:00", "expected 'every', 'on', or an ordinal (first, second, ...)", Span{0, 3}, ""},
		{"every day", "expected 'at'", Span{9, 9}, ""},
		{"every 0 days at 09:00", "interval must be at least 1", Span{6, 7}, ""},
		{"every year on feb 30 at 09:00", "invalid date: feb 30", Span{14, 20}, ""},
		{"every month on the 15th to 5th at 09:00", "invalid day range: 15th to 5th", Span{27, 30}, ""},
		{"every month on the 32nd at 09:00", "invalid day of month: 32", Span{19, 23}, ""},
		{"every day at 09:00 at 10:00", "unexpected tokens after expression", Span{19, 21}, ""},
		{"every day at 09:00 except dec 25 except jan 1", "duplicate 'except' clause", Span{33, 39}, ""},
		{"every day at 09:00 until 2025-12-31 except dec 25", "'except' clause must come before 'until'", Span{36, 42}, "<expr> except ... until ..."},
		{"every day at 09:00 except sat, sun", "expected ISO date or month-day in exception", Span{26, 29}, ""},
		{"every day at 09:00 starting dec 25", "expected ISO date (YYYY-MM-DD) after 'starting'", Span{28, 31}, ""},
		{"on 2025-02-30 at 09:00", "invalid date: 2025-02-30", Span{3, 13}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseData(tt.input)
			var herr *Error
			if !errors.As(err, &herr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if herr.Kind != KindParse {
				t.Errorf("expected parse error, got %s", herr.Kind)
			}
			if herr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, herr.Message)
			}
			if herr.Span == nil || *herr.Span != tt.span {
				t.Errorf("expected span %+v, got %+v", tt.span, herr.Span)
			}
			if herr.Suggestion != tt.suggestion {
				t.Errorf("expected suggestion %q, got %q", tt.suggestion, herr.Suggestion)
			}
			if herr.Input != tt.input {
				t.Errorf("expected input to be kept, got %q", herr.Input)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if !Validate("every day at 09:00 in Not/AZone") {
		t.Error("expected Validate to ignore unresolved timezones")
	}
	if Validate("every day at") {
		t.Error("expected Validate to reject incomplete input")
	}
}
