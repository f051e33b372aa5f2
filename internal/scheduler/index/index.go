package index

import (
	"cmp"
	"slices"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/livinlefevreloca/hron/lib/hron"
)

// ScheduledRun is a single occurrence of a schedule.
type ScheduledRun struct {
	ScheduleID  string
	ScheduledAt time.Time
}

// RunID identifies the run as "<scheduleID>:<unix seconds>".
func (r ScheduledRun) RunID() string {
	return r.ScheduleID + ":" + strconv.FormatInt(r.ScheduledAt.Unix(), 10)
}

// Source is a parsed schedule to expand into runs.
type Source struct {
	ScheduleID string
	Schedule   *hron.Schedule
}

// Generate expands every source over the window [start, end). The result
// is grouped by source and not sorted.
func Generate(sources []Source, start, end time.Time) []ScheduledRun {
	runs := []ScheduledRun{}
	for _, src := range sources {
		// Between excludes its lower bound.
		for t := range src.Schedule.Between(start.Add(-time.Nanosecond), end) {
			if !t.Before(end) {
				break
			}
			runs = append(runs, ScheduledRun{ScheduleID: src.ScheduleID, ScheduledAt: t})
		}
	}
	return runs
}

// ScheduledRunIndex is a time-ordered index of scheduled runs.
// It uses an atomic pointer for lock-free concurrent reads.
type ScheduledRunIndex struct {
	runs atomic.Pointer[[]ScheduledRun]
}

// NewScheduledRunIndex creates a new index from the given runs.
// The input slice is copied and sorted, so the caller can safely reuse it.
func NewScheduledRunIndex(runs []ScheduledRun) *ScheduledRunIndex {
	idx := &ScheduledRunIndex{}
	idx.Swap(runs)
	return idx
}

// Query returns all runs in the time window [start, end), sorted by
// (ScheduledAt, ScheduleID).
func (idx *ScheduledRunIndex) Query(start, end time.Time) []ScheduledRun {
	runs := idx.runs.Load()
	if runs == nil || len(*runs) == 0 {
		return nil
	}

	slice := *runs

	// Binary search for first run >= start
	startIdx := sort.Search(len(slice), func(i int) bool {
		return !slice[i].ScheduledAt.Before(start)
	})

	results := []ScheduledRun{}
	for _, run := range slice[startIdx:] {
		if !run.ScheduledAt.Before(end) {
			break
		}
		results = append(results, run)
	}

	return results
}

// Next returns the first run at or after t.
func (idx *ScheduledRunIndex) Next(t time.Time) (ScheduledRun, bool) {
	runs := idx.runs.Load()
	if runs == nil {
		return ScheduledRun{}, false
	}
	slice := *runs
	i := sort.Search(len(slice), func(i int) bool {
		return !slice[i].ScheduledAt.Before(t)
	})
	if i == len(slice) {
		return ScheduledRun{}, false
	}
	return slice[i], true
}

// Len returns the number of scheduled runs in the index.
func (idx *ScheduledRunIndex) Len() int {
	runs := idx.runs.Load()
	if runs == nil {
		return 0
	}
	return len(*runs)
}

// Swap atomically replaces the index with new runs.
// The input slice is copied and sorted, so the caller can safely reuse it.
func (idx *ScheduledRunIndex) Swap(newRuns []ScheduledRun) {
	sorted := slices.Clone(newRuns)
	if sorted == nil {
		sorted = []ScheduledRun{}
	}
	sortRuns(sorted)
	idx.runs.Store(&sorted)
}

// sortRuns sorts runs by (ScheduledAt, ScheduleID) so that runs sharing an
// instant iterate deterministically.
func sortRuns(runs []ScheduledRun) {
	slices.SortFunc(runs, func(a, b ScheduledRun) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ScheduleID, b.ScheduleID)
	})
}
