package index

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/livinlefevreloca/hron/lib/hron"
)

// expressions used to build realistic indexes; each fires at least hourly
// within a day.
var realisticExpressions = []string{
	"every 15 min from 00:00 to 23:59 in UTC",
	"every 30 min from 08:00 to 18:00 in UTC",
	"every 1 hour from 00:00 to 23:59 in UTC",
	"every day at 09:00, 12:00, 17:30 in UTC",
	"every weekday at 08:45 in UTC",
}

// generateSources parses count schedules cycling through realisticExpressions.
func generateSources(count int) []Source {
	sources := make([]Source, count)
	for i := range count {
		sources[i] = Source{
			ScheduleID: generateScheduleID(i),
			Schedule:   hron.MustParse(realisticExpressions[i%len(realisticExpressions)]),
		}
	}
	return sources
}

// generateMinuteRuns generates count runs grouped by schedule (unsorted by
// time), as Generate would for many every-minute schedules.
func generateMinuteRuns(count int, startTime time.Time) []ScheduledRun {
	const scheduleCount = 10
	runs := make([]ScheduledRun, 0, count)
	for i := range count {
		runs = append(runs, ScheduledRun{
			ScheduleID:  generateScheduleID(i % scheduleCount),
			ScheduledAt: startTime.Add(time.Duration(i/scheduleCount) * time.Minute),
		})
	}
	slices.SortStableFunc(runs, func(a, b ScheduledRun) int {
		return cmp.Compare(a.ScheduleID, b.ScheduleID)
	})
	return runs
}

// generateCoincidentRuns generates multiple runs at the exact same time.
func generateCoincidentRuns(count int, sameTime time.Time) []ScheduledRun {
	runs := make([]ScheduledRun, count)
	for i := range count {
		runs[i] = ScheduledRun{
			ScheduleID:  generateScheduleID(count - i),
			ScheduledAt: sameTime,
		}
	}
	return runs
}

func generateScheduleID(index int) string {
	return fmt.Sprintf("schedule-%04d", index)
}
