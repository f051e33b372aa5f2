package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Test Fixtures and Helpers

// NewTestDB creates a migrated in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Migrate(context.Background(), nil); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// MakeTestSchedule creates a schedule with default test values
func MakeTestSchedule(id string) *Schedule {
	return &Schedule{
		ID:         id,
		Name:       "schedule-" + id,
		Expression: "every day at 09:00",
		Canonical:  "every day at 09:00",
		Enabled:    true,
	}
}

// MakeTestScheduleRun creates a pending run with default test values
func MakeTestScheduleRun(scheduleID string, scheduledAt time.Time) *ScheduleRun {
	return &ScheduleRun{
		ScheduleID:  scheduleID,
		RunID:       scheduleID + ":" + scheduledAt.Format("20060102150405"),
		ScheduledAt: scheduledAt,
		Status:      RunPending,
	}
}

func mustCreateSchedule(t *testing.T, db *DB, s *Schedule) {
	t.Helper()
	if err := db.CreateSchedule(s); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
}

var base = time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC)

// Connection Tests

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dsn     string
		wantErr bool
	}{
		{name: "sqlite in-memory", driver: "sqlite3", dsn: ":memory:"},
		{name: "invalid driver", driver: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Open(tt.driver, tt.dsn)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer db.Close()

			if db.Driver() != tt.driver {
				t.Errorf("driver = %q, want %q", db.Driver(), tt.driver)
			}
		})
	}
}

func TestOpenWithConfig_Migrates(t *testing.T) {
	config := Config{
		Driver:          "sqlite3",
		DSN:             ":memory:",
		MaxOpenConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
	}

	db, err := OpenWithConfig(context.Background(), config, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if stats := db.Stats(); stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", stats.MaxOpenConnections)
	}

	// The schema is in place without an explicit Migrate call.
	mustCreateSchedule(t, db, MakeTestSchedule("s1"))

	applied, err := db.Migrate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no pending migrations, got %v", applied)
	}
}

func TestOpenWithConfig_SkipMigrations(t *testing.T) {
	db, err := OpenWithConfig(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:", SkipMigrations: true}, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.CreateSchedule(MakeTestSchedule("s1")); err == nil {
		t.Error("expected an error without the schedules table")
	}
}

// Schedule Tests

func TestCreateSchedule(t *testing.T) {
	db := NewTestDB(t)

	s := MakeTestSchedule("s1")
	mustCreateSchedule(t, db, s)

	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		t.Error("timestamps were not set")
	}

	err := db.CreateSchedule(s)
	if !IsDuplicate(err) {
		t.Errorf("expected IsDuplicate(err) = true, got %v", err)
	}
}

func TestCreateSchedule_DuplicateName(t *testing.T) {
	db := NewTestDB(t)

	mustCreateSchedule(t, db, MakeTestSchedule("s1"))

	other := MakeTestSchedule("s2")
	other.Name = "schedule-s1"
	if err := db.CreateSchedule(other); !IsDuplicate(err) {
		t.Errorf("expected duplicate name to fail, got %v", err)
	}
}

func TestGetSchedule(t *testing.T) {
	db := NewTestDB(t)

	original := MakeTestSchedule("s1")
	original.Timezone = "Europe/Berlin"
	mustCreateSchedule(t, db, original)

	byID, err := db.GetSchedule("s1")
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	byName, err := db.GetScheduleByName("schedule-s1")
	if err != nil {
		t.Fatalf("GetScheduleByName failed: %v", err)
	}

	for _, got := range []*Schedule{byID, byName} {
		if got.ID != original.ID || got.Expression != original.Expression || got.Timezone != "Europe/Berlin" || !got.Enabled {
			t.Errorf("got %+v, want %+v", got, original)
		}
	}
}

func TestGetSchedule_NotFound(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.GetSchedule("missing")
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
	_, err = db.GetScheduleByName("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAllSchedules(t *testing.T) {
	db := NewTestDB(t)

	all, err := db.GetAllSchedules()
	if err != nil {
		t.Fatalf("GetAllSchedules failed: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("expected an empty, non-nil slice, got %v", all)
	}

	disabled := MakeTestSchedule("b")
	disabled.Enabled = false
	mustCreateSchedule(t, db, MakeTestSchedule("a"))
	mustCreateSchedule(t, db, disabled)

	all, _ = db.GetAllSchedules()
	if len(all) != 2 || all[0].ID != "a" {
		t.Errorf("unexpected schedules %+v", all)
	}

	enabled, err := db.GetEnabledSchedules()
	if err != nil {
		t.Fatalf("GetEnabledSchedules failed: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != "a" {
		t.Errorf("unexpected enabled schedules %+v", enabled)
	}
}

func TestUpdateSchedule(t *testing.T) {
	db := NewTestDB(t)

	s := MakeTestSchedule("s1")
	mustCreateSchedule(t, db, s)

	s.Expression = "0 9 * * 1-5"
	s.Canonical = "every weekday at 09:00"
	if err := db.UpdateSchedule(s); err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}

	got, _ := db.GetSchedule("s1")
	if got.Canonical != "every weekday at 09:00" {
		t.Errorf("Canonical = %q", got.Canonical)
	}

	if err := db.SetScheduleEnabled("s1", false); err != nil {
		t.Fatalf("SetScheduleEnabled failed: %v", err)
	}
	got, _ = db.GetSchedule("s1")
	if got.Enabled {
		t.Error("expected schedule to be disabled")
	}
}

func TestUpdateSchedule_NotFound(t *testing.T) {
	db := NewTestDB(t)

	if err := db.UpdateSchedule(MakeTestSchedule("missing")); !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
	if err := db.SetScheduleEnabled("missing", true); !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
	if err := db.DeleteSchedule("missing"); !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
}

func TestDeleteSchedule_CascadeToRuns(t *testing.T) {
	db := NewTestDB(t)

	mustCreateSchedule(t, db, MakeTestSchedule("s1"))
	run := MakeTestScheduleRun("s1", base)
	if err := db.CreateScheduleRun(run); err != nil {
		t.Fatalf("CreateScheduleRun failed: %v", err)
	}

	if err := db.DeleteSchedule("s1"); err != nil {
		t.Fatalf("DeleteSchedule failed: %v", err)
	}

	if _, err := db.GetScheduleRunByRunID(run.RunID); !IsNotFound(err) {
		t.Errorf("expected run to be deleted with its schedule, got %v", err)
	}
}

// Schedule Run Tests

func TestCreateScheduleRun(t *testing.T) {
	db := NewTestDB(t)
	mustCreateSchedule(t, db, MakeTestSchedule("s1"))

	run := MakeTestScheduleRun("s1", base)
	if err := db.CreateScheduleRun(run); err != nil {
		t.Fatalf("CreateScheduleRun failed: %v", err)
	}

	got, err := db.GetScheduleRunByRunID(run.RunID)
	if err != nil {
		t.Fatalf("GetScheduleRunByRunID failed: %v", err)
	}
	if !got.ScheduledAt.Equal(base) || got.Status != RunPending || got.FiredAt != nil || got.Error != nil {
		t.Errorf("unexpected run %+v", got)
	}

	if err := db.CreateScheduleRun(run); !IsDuplicate(err) {
		t.Errorf("expected IsDuplicate, got %v", err)
	}
}

func TestCreateScheduleRun_UnknownSchedule(t *testing.T) {
	db := NewTestDB(t)

	err := db.CreateScheduleRun(MakeTestScheduleRun("missing", base))
	if !IsForeignKey(err) {
		t.Errorf("expected IsForeignKey, got %v", err)
	}
}

func TestGetScheduleRuns(t *testing.T) {
	db := NewTestDB(t)
	mustCreateSchedule(t, db, MakeTestSchedule("s1"))

	for i := range 5 {
		if err := db.CreateScheduleRun(MakeTestScheduleRun("s1", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("CreateScheduleRun failed: %v", err)
		}
	}

	runs, err := db.GetScheduleRuns("s1", 3)
	if err != nil {
		t.Fatalf("GetScheduleRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if !runs[0].ScheduledAt.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("expected newest run first, got %v", runs[0].ScheduledAt)
	}

	last, err := db.LastScheduledAt("s1")
	if err != nil {
		t.Fatalf("LastScheduledAt failed: %v", err)
	}
	if !last.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("LastScheduledAt = %v", last)
	}
}

func TestLastScheduledAt_NoRuns(t *testing.T) {
	db := NewTestDB(t)
	mustCreateSchedule(t, db, MakeTestSchedule("s1"))

	last, err := db.LastScheduledAt("s1")
	if err != nil {
		t.Fatalf("LastScheduledAt failed: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero time, got %v", last)
	}
}

func TestCompleteScheduleRun(t *testing.T) {
	db := NewTestDB(t)
	mustCreateSchedule(t, db, MakeTestSchedule("s1"))

	ok := MakeTestScheduleRun("s1", base)
	failed := MakeTestScheduleRun("s1", base.Add(time.Hour))
	for _, run := range []*ScheduleRun{ok, failed} {
		if err := db.CreateScheduleRun(run); err != nil {
			t.Fatalf("CreateScheduleRun failed: %v", err)
		}
	}

	firedAt := base.Add(2 * time.Second)
	if err := db.CompleteScheduleRun(ok.RunID, firedAt, nil); err != nil {
		t.Fatalf("CompleteScheduleRun failed: %v", err)
	}
	if err := db.CompleteScheduleRun(failed.RunID, firedAt, errors.New("handler exploded")); err != nil {
		t.Fatalf("CompleteScheduleRun failed: %v", err)
	}

	got, _ := db.GetScheduleRunByRunID(ok.RunID)
	if got.Status != RunSucceeded || got.FiredAt == nil || !got.FiredAt.Equal(firedAt) || got.Error != nil {
		t.Errorf("unexpected succeeded run %+v", got)
	}

	got, _ = db.GetScheduleRunByRunID(failed.RunID)
	if got.Status != RunFailed || got.Error == nil || *got.Error != "handler exploded" {
		t.Errorf("unexpected failed run %+v", got)
	}

	if err := db.CompleteScheduleRun("missing", firedAt, nil); !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
}

// Transaction Tests

func TestWithTransaction_Success(t *testing.T) {
	db := NewTestDB(t)

	err := db.WithTransaction(func(tx *Tx) error {
		if err := tx.CreateSchedule(MakeTestSchedule("s1")); err != nil {
			return err
		}
		s, err := tx.GetScheduleByName("schedule-s1")
		if err != nil {
			return err
		}
		s.Canonical = "every day at 10:00"
		return tx.UpdateSchedule(s)
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}

	got, err := db.GetSchedule("s1")
	if err != nil {
		t.Fatalf("schedule should exist after commit: %v", err)
	}
	if got.Canonical != "every day at 10:00" {
		t.Errorf("Canonical = %q", got.Canonical)
	}
}

func TestWithTransaction_Rollback(t *testing.T) {
	db := NewTestDB(t)

	testErr := errors.New("test error")

	err := db.WithTransaction(func(tx *Tx) error {
		if err := tx.CreateSchedule(MakeTestSchedule("s1")); err != nil {
			return err
		}
		return testErr
	})
	if err != testErr {
		t.Fatalf("expected testErr, got %v", err)
	}

	if _, err := db.GetSchedule("s1"); !IsNotFound(err) {
		t.Error("schedule should not exist after rollback")
	}
}

func TestWithTransaction_Panic(t *testing.T) {
	db := NewTestDB(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		db.WithTransaction(func(tx *Tx) error {
			tx.CreateSchedule(MakeTestSchedule("s1"))
			panic("boom")
		})
	}()

	if _, err := db.GetSchedule("s1"); !IsNotFound(err) {
		t.Error("schedule should not exist after panic")
	}
}

// Error Classification Tests

func TestErrorClassification(t *testing.T) {
	if IsNotFound(nil) || IsDuplicate(nil) || IsForeignKey(nil) {
		t.Error("nil must not classify as any error")
	}
	if !IsNotFound(ErrNotFound) || !IsDuplicate(ErrDuplicate) || !IsForeignKey(ErrForeignKey) {
		t.Error("sentinels must classify as themselves")
	}

	unique := fmt.Errorf("creating schedule: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	if !IsDuplicate(unique) || IsForeignKey(unique) {
		t.Error("wrapped unique violation must classify as duplicate only")
	}
	fk := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}
	if !IsForeignKey(fk) || IsDuplicate(fk) {
		t.Error("foreign key violation must classify as foreign key only")
	}
	if IsDuplicate(sqlite3.Error{Code: sqlite3.ErrBusy}) {
		t.Error("busy must not classify as duplicate")
	}
}

// Statistics Tests

func TestSchedulerStats(t *testing.T) {
	db := NewTestDB(t)

	maxInbox := 7
	periods := []*SchedulerStats{
		{StatsPeriodID: "p1", StartTime: base, EndTime: base.Add(time.Hour), Iterations: 3600, Dispatched: 12, MaxInboxLength: &maxInbox},
		{StatsPeriodID: "p2", StartTime: base.Add(time.Hour), EndTime: base.Add(2 * time.Hour), Iterations: 3600, Failed: 1},
		{StatsPeriodID: "p3", StartTime: base.Add(5 * time.Hour), EndTime: base.Add(6 * time.Hour)},
	}
	for _, p := range periods {
		if err := db.CreateSchedulerStats(p); err != nil {
			t.Fatalf("CreateSchedulerStats failed: %v", err)
		}
	}

	got, err := db.GetSchedulerStats(base.Add(30*time.Minute), base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("GetSchedulerStats failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d periods, want 2", len(got))
	}
	if got[0].Dispatched != 12 || got[0].MaxInboxLength == nil || *got[0].MaxInboxLength != 7 {
		t.Errorf("unexpected first period %+v", got[0])
	}
	if got[1].Failed != 1 || got[1].MaxInboxLength != nil {
		t.Errorf("unexpected second period %+v", got[1])
	}
}
