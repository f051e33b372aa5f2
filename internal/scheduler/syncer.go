package scheduler

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/livinlefevreloca/hron/internal/db"
)

// Syncer moves run-result and stats writes off the workers and the main
// loop onto a single writer goroutine.
type Syncer struct {
	logger *slog.Logger

	results chan RunResult
	stats   chan db.SchedulerStats

	written     atomic.Int64
	writeErrors atomic.Int64

	wg sync.WaitGroup
}

// SyncerStats provides current syncer statistics
type SyncerStats struct {
	BufferedResults int
	Written         int64
	WriteErrors     int64
}

// NewSyncer creates a syncer buffering up to bufferSize results
func NewSyncer(bufferSize int, logger *slog.Logger) *Syncer {
	return &Syncer{
		logger:  logger,
		results: make(chan RunResult, bufferSize),
		stats:   make(chan db.SchedulerStats, 16),
	}
}

// Start launches the writer goroutine
func (s *Syncer) Start(store Store) {
	s.wg.Add(1)
	go s.run(store)
}

// RecordResult queues a finished run. It blocks while the buffer is full.
func (s *Syncer) RecordResult(r RunResult) {
	s.results <- r
}

// RecordStats queues a stats period, dropping it if the queue is full
func (s *Syncer) RecordStats(st db.SchedulerStats) {
	select {
	case s.stats <- st:
	default:
		s.logger.Warn("stats queue full, dropping period", "stats_period_id", st.StatsPeriodID)
	}
}

func (s *Syncer) run(store Store) {
	defer s.wg.Done()

	results, stats := s.results, s.stats
	for results != nil || stats != nil {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			s.writeResult(store, r)
		case st, ok := <-stats:
			if !ok {
				stats = nil
				continue
			}
			if err := store.CreateSchedulerStats(&st); err != nil {
				// Stats writes are not critical
				s.writeErrors.Add(1)
				s.logger.Error("failed to write scheduler stats", "error", err)
			}
		}
	}

	s.logger.Debug("syncer shut down")
}

func (s *Syncer) writeResult(store Store, r RunResult) {
	if err := store.CompleteScheduleRun(r.RunID, r.FiredAt, r.Err); err != nil {
		s.writeErrors.Add(1)
		s.logger.Error("failed to record run result",
			"run_id", r.RunID,
			"schedule_id", r.ScheduleID,
			"error", err)
		return
	}
	s.written.Add(1)
}

// Shutdown drains everything queued and waits for the writer to exit.
// Nothing may be recorded after Shutdown.
func (s *Syncer) Shutdown() {
	close(s.results)
	close(s.stats)
	s.wg.Wait()
}

// GetStats returns current syncer statistics
func (s *Syncer) GetStats() SyncerStats {
	return SyncerStats{
		BufferedResults: len(s.results),
		Written:         s.written.Load(),
		WriteErrors:     s.writeErrors.Load(),
	}
}
