package db

import "time"

const statsColumns = `
	stats_period_id, start_time, end_time, iterations, dispatched, send_timeouts,
	succeeded, failed, index_builds, parse_errors, max_inbox_length
`

// CreateSchedulerStats inserts scheduler statistics
func (db *DB) CreateSchedulerStats(stats *SchedulerStats) error {
	query := `
		INSERT INTO scheduler_stats (` + statsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		stats.StatsPeriodID,
		stats.StartTime.UTC(),
		stats.EndTime.UTC(),
		stats.Iterations,
		stats.Dispatched,
		stats.SendTimeouts,
		stats.Succeeded,
		stats.Failed,
		stats.IndexBuilds,
		stats.ParseErrors,
		stats.MaxInboxLength,
	)

	return err
}

// GetSchedulerStats retrieves the periods overlapping [startTime, endTime]
func (db *DB) GetSchedulerStats(startTime, endTime time.Time) ([]SchedulerStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM scheduler_stats
		WHERE start_time <= ? AND end_time >= ?
		ORDER BY start_time
	`

	rows, err := db.Query(query, endTime.UTC(), startTime.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []SchedulerStats{}
	for rows.Next() {
		var s SchedulerStats
		err := rows.Scan(
			&s.StatsPeriodID,
			&s.StartTime,
			&s.EndTime,
			&s.Iterations,
			&s.Dispatched,
			&s.SendTimeouts,
			&s.Succeeded,
			&s.Failed,
			&s.IndexBuilds,
			&s.ParseErrors,
			&s.MaxInboxLength,
		)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
