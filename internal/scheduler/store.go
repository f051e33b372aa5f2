package scheduler

import (
	"time"

	"github.com/livinlefevreloca/hron/internal/db"
)

// Store is the persistence the scheduler needs. *db.DB implements it.
type Store interface {
	GetEnabledSchedules() ([]db.Schedule, error)
	CreateScheduleRun(run *db.ScheduleRun) error
	CompleteScheduleRun(runID string, firedAt time.Time, runErr error) error
	CreateSchedulerStats(stats *db.SchedulerStats) error
}

var _ Store = (*db.DB)(nil)
