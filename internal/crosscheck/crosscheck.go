// Package crosscheck verifies cron conversions by comparing the occurrences
// of an hron schedule with the ticks an independent cron engine computes
// for its ToCron form.
package crosscheck

import (
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/livinlefevreloca/hron/lib/hron"
)

// ErrMismatch is returned by Verify when the two engines disagree.
var ErrMismatch = errors.New("crosscheck: hron and cron disagree")

// Mismatch is the first point at which the two sequences differ. A zero
// Hron time means the hron schedule ended before the cron one.
type Mismatch struct {
	Index int
	Hron  time.Time
	Cron  time.Time
}

// Report is the outcome of comparing n occurrences.
type Report struct {
	Expression string
	Cron       string
	Checked    int
	Mismatch   *Mismatch
}

// OK reports whether every compared occurrence agreed.
func (r Report) OK() bool {
	return r.Mismatch == nil
}

// Compare converts s to cron and walks n occurrences after from in both
// engines. Cron ticks are computed on the wall clock of s's location.
func Compare(s *hron.Schedule, from time.Time, n int) (Report, error) {
	expr, err := s.ToCron()
	if err != nil {
		return Report{}, err
	}
	report := Report{Expression: s.String(), Cron: expr}

	ref := from.In(s.Location())
	i := 0
	for occ := range s.Occurrences(from) {
		if i == n {
			break
		}
		tick, err := gronx.NextTickAfter(expr, ref, false)
		if err != nil {
			return report, fmt.Errorf("computing cron tick after %s: %w", ref, err)
		}
		if !tick.Equal(occ) {
			report.Mismatch = &Mismatch{Index: i, Hron: occ, Cron: tick}
			return report, nil
		}
		ref = tick
		i++
		report.Checked = i
	}

	if i < n {
		// The hron sequence ended; any further cron tick is a mismatch.
		if tick, err := gronx.NextTickAfter(expr, ref, false); err == nil {
			report.Mismatch = &Mismatch{Index: i, Cron: tick}
		}
	}
	return report, nil
}

// Verify is Compare that returns ErrMismatch on disagreement.
func Verify(s *hron.Schedule, from time.Time, n int) (Report, error) {
	report, err := Compare(s, from, n)
	if err != nil {
		return report, err
	}
	if m := report.Mismatch; m != nil {
		return report, fmt.Errorf("%w: occurrence %d of %q: hron %s, cron %q %s",
			ErrMismatch, m.Index, report.Expression, formatTime(m.Hron), report.Cron, formatTime(m.Cron))
	}
	return report, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(time.RFC3339)
}
