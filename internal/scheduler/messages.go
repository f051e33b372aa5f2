package scheduler

import (
	"context"
	"time"
)

// Dispatch is one due run handed from the main loop to the workers.
type Dispatch struct {
	RunID       string
	ScheduleID  string
	ScheduledAt time.Time
	Expression  string // canonical hron form
}

// Handler performs the work of a run. A returned error marks the run failed.
type Handler func(ctx context.Context, d Dispatch) error

// RunResult is a finished run on its way to the store.
type RunResult struct {
	RunID      string
	ScheduleID string
	FiredAt    time.Time
	Duration   time.Duration
	Err        error
}
