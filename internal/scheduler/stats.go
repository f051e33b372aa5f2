package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/livinlefevreloca/hron/internal/db"
)

// periodStats accumulates counters for the current reporting period.
// Workers update it concurrently with the main loop.
type periodStats struct {
	start        time.Time
	iterations   atomic.Int64
	dispatched   atomic.Int64
	sendTimeouts atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	indexBuilds  atomic.Int64
	parseErrors  atomic.Int64
	maxInbox     atomic.Int64
}

func (p *periodStats) observeInbox(depth int) {
	d := int64(depth)
	for {
		seen := p.maxInbox.Load()
		if d <= seen || p.maxInbox.CompareAndSwap(seen, d) {
			return
		}
	}
}

// cut closes the period at end and starts a new one.
func (p *periodStats) cut(end time.Time) db.SchedulerStats {
	maxInbox := int(p.maxInbox.Swap(0))
	st := db.SchedulerStats{
		StatsPeriodID:  uuid.NewString(),
		StartTime:      p.start,
		EndTime:        end,
		Iterations:     int(p.iterations.Swap(0)),
		Dispatched:     int(p.dispatched.Swap(0)),
		SendTimeouts:   int(p.sendTimeouts.Swap(0)),
		Succeeded:      int(p.succeeded.Swap(0)),
		Failed:         int(p.failed.Swap(0)),
		IndexBuilds:    int(p.indexBuilds.Swap(0)),
		ParseErrors:    int(p.parseErrors.Swap(0)),
		MaxInboxLength: &maxInbox,
	}
	p.start = end
	return st
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	IndexSize      int
	LastIndexBuild time.Duration
	Inbox          InboxStats
	Syncer         SyncerStats
}
