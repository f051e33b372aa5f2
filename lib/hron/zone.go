package hron

import (
	"sync"
	"time"
)

// ZoneResolver maps an IANA zone name to a location.
type ZoneResolver interface {
	Resolve(name string) (*time.Location, error)
}

// ZoneResolverFunc adapts a function to the ZoneResolver interface.
type ZoneResolverFunc func(name string) (*time.Location, error)

func (f ZoneResolverFunc) Resolve(name string) (*time.Location, error) {
	return f(name)
}

// SystemZones resolves names against the IANA database available to the
// time package. Successful lookups are cached.
var SystemZones ZoneResolver = &cachedZones{}

type cachedZones struct {
	locations sync.Map // name -> *time.Location
}

func (c *cachedZones) Resolve(name string) (*time.Location, error) {
	if loc, ok := c.locations.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	c.locations.Store(name, loc)
	return loc, nil
}

// atTime converts a wall-clock date and time in loc to an instant.
//
// A time skipped by a spring-forward transition is pushed forward by the
// size of the gap (02:30 in a one hour gap becomes 03:30). A time repeated
// by a fall-back transition resolves to its first, pre-transition instant.
func atTime(d Date, tod TimeOfDay, loc *time.Location) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc)

	if t.Hour() != tod.Hour || t.Minute() != tod.Minute {
		gap := tod.minutes() - (t.Hour()*60 + t.Minute())
		if gap > 0 {
			return t.Add(time.Duration(gap) * time.Minute)
		}
		return t
	}

	// Ambiguous wall time: an earlier instant with a larger offset shows the
	// same clock reading.
	_, offset := t.Zone()
	_, before := t.Add(-24 * time.Hour).Zone()
	if shift := before - offset; shift > 0 {
		earlier := t.Add(-time.Duration(shift) * time.Second)
		if earlier.Hour() == tod.Hour && earlier.Minute() == tod.Minute && DateOf(earlier) == d {
			return earlier
		}
	}
	return t
}
