package scheduler

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/internal/testutil"
)

func TestSyncer_WritesResultsAndStats(t *testing.T) {
	store := testutil.NewMockStore()
	for _, id := range []string{"r1", "r2"} {
		require.NoError(t, store.CreateScheduleRun(&db.ScheduleRun{RunID: id, ScheduleID: "s", Status: db.RunPending}))
	}

	syncer := NewSyncer(10, slog.New(slog.DiscardHandler))
	syncer.Start(store)

	syncer.RecordResult(RunResult{RunID: "r1", FiredAt: testStart})
	syncer.RecordResult(RunResult{RunID: "r2", FiredAt: testStart, Err: errors.New("boom")})
	syncer.RecordStats(db.SchedulerStats{StatsPeriodID: "p1", StartTime: testStart, EndTime: testStart.Add(time.Minute)})

	// Shutdown drains before returning
	syncer.Shutdown()

	assert.Equal(t, 1, store.RunsWithStatus(db.RunSucceeded))
	assert.Equal(t, 1, store.RunsWithStatus(db.RunFailed))
	assert.Len(t, store.WrittenStats(), 1)

	stats := syncer.GetStats()
	assert.Equal(t, int64(2), stats.Written)
	assert.Equal(t, int64(0), stats.WriteErrors)
	assert.Equal(t, 0, stats.BufferedResults)
}

func TestSyncer_WriteErrorsAreLogged(t *testing.T) {
	store := testutil.NewMockStore()
	logs := testutil.NewTestLogger()

	syncer := NewSyncer(10, logs.Logger())
	syncer.Start(store)

	// Completing a run that was never recorded fails with ErrNotFound
	syncer.RecordResult(RunResult{RunID: "unknown", ScheduleID: "s"})
	syncer.Shutdown()

	assert.Equal(t, int64(1), syncer.GetStats().WriteErrors)
	assert.True(t, logs.Has(slog.LevelError, "failed to record run result"))
}

func TestSyncer_StatsQueueFull(t *testing.T) {
	logs := testutil.NewTestLogger()
	syncer := NewSyncer(1, logs.Logger())

	// Not started, so nothing drains the queue
	for i := range cap(syncer.stats) + 1 {
		syncer.RecordStats(db.SchedulerStats{StatsPeriodID: string(rune('a' + i))})
	}

	assert.True(t, logs.Has(slog.LevelWarn, "stats queue full, dropping period"))
}
