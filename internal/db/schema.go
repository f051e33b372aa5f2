package db

import "time"

// Run statuses recorded in schedule_runs.
const (
	RunPending   = "pending"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Schedule is a stored, named hron expression.
type Schedule struct {
	ID         string
	Name       string
	Expression string // as written by the user; may be cron text
	Canonical  string // hron display form
	Timezone   string // empty when the expression has no 'in' clause
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ScheduleRun is one firing of a schedule.
type ScheduleRun struct {
	ScheduleID  string
	RunID       string
	ScheduledAt time.Time
	FiredAt     *time.Time
	Status      string
	Error       *string
}

// SchedulerStats are the counters of one scheduler reporting period.
type SchedulerStats struct {
	StatsPeriodID  string
	StartTime      time.Time
	EndTime        time.Time
	Iterations     int
	Dispatched     int
	SendTimeouts   int
	Succeeded      int
	Failed         int
	IndexBuilds    int
	ParseErrors    int
	MaxInboxLength *int
}
