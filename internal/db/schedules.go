package db

import (
	"database/sql"
	"time"
)

// =============================================================================
// Schedule Operations
// =============================================================================

const scheduleColumns = `id, name, expression, canonical, timezone, enabled, created_at, updated_at`

// CreateSchedule creates a new schedule
func (db *DB) CreateSchedule(s *Schedule) error {
	return createSchedule(db, s)
}

// CreateSchedule creates a new schedule within a transaction
func (tx *Tx) CreateSchedule(s *Schedule) error {
	return createSchedule(tx, s)
}

func createSchedule(e execer, s *Schedule) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := e.Exec(query, s.ID, s.Name, s.Expression, s.Canonical, s.Timezone, s.Enabled, s.CreatedAt, s.UpdatedAt)
	return err
}

// GetSchedule retrieves a schedule by ID
func (db *DB) GetSchedule(id string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	return scanSchedule(db.QueryRow(query, id))
}

// GetScheduleByName retrieves a schedule by its unique name
func (db *DB) GetScheduleByName(name string) (*Schedule, error) {
	return getScheduleByName(db, name)
}

// GetScheduleByName retrieves a schedule by name within a transaction
func (tx *Tx) GetScheduleByName(name string) (*Schedule, error) {
	return getScheduleByName(tx, name)
}

func getScheduleByName(e execer, name string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE name = ?`
	return scanSchedule(e.QueryRow(query, name))
}

func scanSchedule(row *sql.Row) (*Schedule, error) {
	s := &Schedule{}
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Expression,
		&s.Canonical,
		&s.Timezone,
		&s.Enabled,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return s, nil
}

// GetAllSchedules retrieves every schedule ordered by name
func (db *DB) GetAllSchedules() ([]Schedule, error) {
	return db.querySchedules(`SELECT ` + scheduleColumns + ` FROM schedules ORDER BY name`)
}

// GetEnabledSchedules retrieves the schedules the scheduler should index
func (db *DB) GetEnabledSchedules() ([]Schedule, error) {
	return db.querySchedules(`SELECT ` + scheduleColumns + ` FROM schedules WHERE enabled = 1 ORDER BY name`)
}

func (db *DB) querySchedules(query string, args ...any) ([]Schedule, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []Schedule{}
	for rows.Next() {
		var s Schedule
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Expression,
			&s.Canonical,
			&s.Timezone,
			&s.Enabled,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	return schedules, rows.Err()
}

// UpdateSchedule updates an existing schedule
func (db *DB) UpdateSchedule(s *Schedule) error {
	return updateSchedule(db, s)
}

// UpdateSchedule updates an existing schedule within a transaction
func (tx *Tx) UpdateSchedule(s *Schedule) error {
	return updateSchedule(tx, s)
}

func updateSchedule(e execer, s *Schedule) error {
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE schedules
		SET name = ?, expression = ?, canonical = ?, timezone = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`

	return mustAffect(e.Exec(query, s.Name, s.Expression, s.Canonical, s.Timezone, s.Enabled, s.UpdatedAt, s.ID))
}

// SetScheduleEnabled enables or disables a schedule
func (db *DB) SetScheduleEnabled(id string, enabled bool) error {
	query := `UPDATE schedules SET enabled = ?, updated_at = ? WHERE id = ?`
	return mustAffect(db.Exec(query, enabled, time.Now().UTC(), id))
}

// DeleteSchedule deletes a schedule and, by cascade, its runs
func (db *DB) DeleteSchedule(id string) error {
	return mustAffect(db.Exec(`DELETE FROM schedules WHERE id = ?`, id))
}
