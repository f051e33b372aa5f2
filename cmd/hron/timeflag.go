package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// outputLayout is used for every time the CLI prints.
const outputLayout = "2006-01-02T15:04:05Z07:00 Mon"

// localLayouts carry no offset and are read in the schedule's location.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// timeValue is a pflag.Value holding an instant. Times without an offset
// are read in the schedule's location, so resolution is deferred until
// the location is known. An unset value means now.
type timeValue struct {
	raw string
}

var _ pflag.Value = (*timeValue)(nil)

func (v *timeValue) String() string { return v.raw }

func (v *timeValue) Type() string { return "time" }

func (v *timeValue) Set(s string) error {
	if s != "now" {
		if _, err := parseTime(s, time.UTC); err != nil {
			return err
		}
	}
	v.raw = s
	return nil
}

// resolve returns the instant, reading offset-less times in loc.
func (v *timeValue) resolve(loc *time.Location, now time.Time) time.Time {
	if v.raw == "" || v.raw == "now" {
		return now
	}
	t, _ := parseTime(v.raw, loc)
	return t
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339, YYYY-MM-DDTHH:MM, YYYY-MM-DD HH:MM or YYYY-MM-DD)", s)
}

func addTimeFlag(flagSet *pflag.FlagSet, v *timeValue, name, usage string) {
	flagSet.Var(v, name, usage)
}
