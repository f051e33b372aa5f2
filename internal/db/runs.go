package db

import (
	"database/sql"
	"time"
)

const runColumns = `schedule_id, run_id, scheduled_at, fired_at, status, error`

// CreateScheduleRun creates a new schedule run record
func (db *DB) CreateScheduleRun(run *ScheduleRun) error {
	query := `
		INSERT INTO schedule_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		run.ScheduleID,
		run.RunID,
		run.ScheduledAt.UTC(),
		run.FiredAt,
		run.Status,
		run.Error,
	)

	return err
}

// GetScheduleRunByRunID retrieves a run by its run ID
func (db *DB) GetScheduleRunByRunID(runID string) (*ScheduleRun, error) {
	run := &ScheduleRun{}

	query := `SELECT ` + runColumns + ` FROM schedule_runs WHERE run_id = ?`

	err := db.QueryRow(query, runID).Scan(
		&run.ScheduleID,
		&run.RunID,
		&run.ScheduledAt,
		&run.FiredAt,
		&run.Status,
		&run.Error,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return run, nil
}

// GetScheduleRuns retrieves the most recent runs of a schedule, newest first
func (db *DB) GetScheduleRuns(scheduleID string, limit int) ([]ScheduleRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM schedule_runs
		WHERE schedule_id = ?
		ORDER BY scheduled_at DESC
		LIMIT ?
	`

	rows, err := db.Query(query, scheduleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []ScheduleRun{}
	for rows.Next() {
		var run ScheduleRun
		err := rows.Scan(
			&run.ScheduleID,
			&run.RunID,
			&run.ScheduledAt,
			&run.FiredAt,
			&run.Status,
			&run.Error,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LastScheduledAt returns the latest scheduled time recorded for a
// schedule, or the zero time when it has never run.
func (db *DB) LastScheduledAt(scheduleID string) (time.Time, error) {
	var last time.Time
	query := `
		SELECT scheduled_at FROM schedule_runs
		WHERE schedule_id = ?
		ORDER BY scheduled_at DESC
		LIMIT 1
	`
	err := db.QueryRow(query, scheduleID).Scan(&last)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return last, err
}

// CompleteScheduleRun marks a run as finished
func (db *DB) CompleteScheduleRun(runID string, firedAt time.Time, runErr error) error {
	status := RunSucceeded
	var errMsg *string
	if runErr != nil {
		status = RunFailed
		msg := runErr.Error()
		errMsg = &msg
	}

	query := `
		UPDATE schedule_runs
		SET fired_at = ?, status = ?, error = ?
		WHERE run_id = ?
	`

	return mustAffect(db.Exec(query, firedAt.UTC(), status, errMsg, runID))
}
