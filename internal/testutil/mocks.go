// Package testutil provides fakes shared by the service tests.
package testutil

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/livinlefevreloca/hron/internal/db"
)

// MockStore is an in-memory scheduler store with injectable failures
type MockStore struct {
	mu         sync.Mutex
	schedules  []db.Schedule
	runs       map[string]*db.ScheduleRun
	stats      []db.SchedulerStats
	queryError error
	writeError error
}

func NewMockStore() *MockStore {
	return &MockStore{
		runs: make(map[string]*db.ScheduleRun),
	}
}

// AddSchedule stores an enabled schedule whose canonical form is expr
func (m *MockStore) AddSchedule(id, expr string) {
	m.SetSchedules(append(m.Schedules(), db.Schedule{
		ID:         id,
		Name:       id,
		Expression: expr,
		Canonical:  expr,
		Enabled:    true,
	}))
}

func (m *MockStore) SetSchedules(schedules []db.Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = slices.Clone(schedules)
}

func (m *MockStore) Schedules() []db.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.schedules)
}

func (m *MockStore) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryError = err
}

func (m *MockStore) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeError = err
}

func (m *MockStore) GetEnabledSchedules() ([]db.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryError != nil {
		return nil, m.queryError
	}

	enabled := []db.Schedule{}
	for _, s := range m.schedules {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

func (m *MockStore) CreateScheduleRun(run *db.ScheduleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return m.writeError
	}
	if _, exists := m.runs[run.RunID]; exists {
		return db.ErrDuplicate
	}
	copied := *run
	m.runs[run.RunID] = &copied
	return nil
}

func (m *MockStore) CompleteScheduleRun(runID string, firedAt time.Time, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return m.writeError
	}
	run, ok := m.runs[runID]
	if !ok {
		return db.ErrNotFound
	}
	run.FiredAt = &firedAt
	run.Status = db.RunSucceeded
	if runErr != nil {
		msg := runErr.Error()
		run.Status = db.RunFailed
		run.Error = &msg
	}
	return nil
}

func (m *MockStore) CreateSchedulerStats(stats *db.SchedulerStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return m.writeError
	}
	m.stats = append(m.stats, *stats)
	return nil
}

// Run returns a copy of a recorded run
func (m *MockStore) Run(runID string) (db.ScheduleRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return db.ScheduleRun{}, false
	}
	return *run, true
}

// RunsWithStatus counts recorded runs in the given status
func (m *MockStore) RunsWithStatus(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, run := range m.runs {
		if run.Status == status {
			n++
		}
	}
	return n
}

func (m *MockStore) CountRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func (m *MockStore) WrittenStats() []db.SchedulerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stats)
}

// MockClock provides controllable time for testing
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

// LogEntry is one captured log record
type LogEntry struct {
	Level   slog.Level
	Message string
	Fields  map[string]any
}

// TestLogger captures slog records for assertions
type TestLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Logger returns a *slog.Logger that writes to this TestLogger
func (l *TestLogger) Logger() *slog.Logger {
	return slog.New(&testLogHandler{logger: l})
}

func (l *TestLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Has reports whether a record with the level and message was logged
func (l *TestLogger) Has(level slog.Level, msg string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// Count returns how many records with the level and message were logged
func (l *TestLogger) Count(level slog.Level, msg string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Level == level && e.Message == msg {
			n++
		}
	}
	return n
}

type testLogHandler struct {
	logger *TestLogger
	attrs  []slog.Attr
}

func (h *testLogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Level:   r.Level,
		Message: r.Message,
		Fields:  make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, a := range h.attrs {
		entry.Fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Fields[a.Key] = a.Value.Any()
		return true
	})

	h.logger.mu.Lock()
	h.logger.entries = append(h.logger.entries, entry)
	h.logger.mu.Unlock()
	return nil
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testLogHandler{logger: h.logger, attrs: append(slices.Clone(h.attrs), attrs...)}
}

func (h *testLogHandler) WithGroup(string) slog.Handler {
	return h
}
