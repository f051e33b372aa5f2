package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/internal/scheduler/index"
	"github.com/livinlefevreloca/hron/lib/hron"
)

// Scheduler fires the enabled schedules of a store: it keeps an index of
// upcoming runs, dispatches due runs to workers and records their results.
type Scheduler struct {
	// Configuration
	config    SchedulerConfig
	logger    *slog.Logger
	store     Store
	handler   Handler
	parseOpts []hron.Option
	now       func() time.Time

	// State
	index       *index.ScheduledRunIndex
	expressions atomic.Pointer[map[string]string] // schedule ID → canonical form
	seen        map[string]*runState              // run ID → state, main loop only

	// Stats
	stats                  periodStats
	lastIndexBuildDuration atomic.Int64

	// Communication
	inbox  *Inbox
	syncer *Syncer

	// Control
	rebuildIndexChan chan struct{}
	running          atomic.Bool
}

type runState struct {
	scheduledAt time.Time
	sent        bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now as the scheduler's notion of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithParseOptions passes options to every hron.Parse the scheduler makes.
func WithParseOptions(opts ...hron.Option) Option {
	return func(s *Scheduler) { s.parseOpts = append(s.parseOpts, opts...) }
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("scheduler: already running")

// ErrAbandoned is recorded for runs still queued when the scheduler stops.
var ErrAbandoned = errors.New("scheduler shut down before run started")

// NewScheduler creates a scheduler and builds its initial index
func NewScheduler(config SchedulerConfig, store Store, handler Handler, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("scheduler: handler is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Scheduler{
		config:           config,
		logger:           logger,
		store:            store,
		handler:          handler,
		now:              time.Now,
		index:            index.NewScheduledRunIndex(nil),
		seen:             make(map[string]*runState),
		inbox:            NewInbox(config.InboxBufferSize, config.InboxSendTimeout, logger),
		syncer:           NewSyncer(config.ResultBufferSize, logger),
		rebuildIndexChan: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats.start = s.now()

	// Build initial index synchronously so a bad store fails fast
	if err := s.performIndexBuild(); err != nil {
		return nil, fmt.Errorf("failed to build initial index: %w", err)
	}

	return s, nil
}

// Run starts the workers, the index builder and the main loop, and blocks
// until ctx is cancelled. Results already queued are written before it
// returns. A scheduler runs at most once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.logger.Info("starting scheduler",
		"workers", s.config.Workers,
		"index_size", s.index.Len())

	s.syncer.Start(s.store)

	var wg sync.WaitGroup
	for i := range s.config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runWorker(ctx, i)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runIndexBuilder(ctx)
	}()

	ticker := time.NewTicker(s.config.LoopInterval)
	defer ticker.Stop()
	statsTicker := time.NewTicker(s.config.StatsInterval)
	defer statsTicker.Stop()

	s.iteration(ctx)
	for {
		select {
		case <-ctx.Done():
			return s.handleShutdown(&wg)
		case <-ticker.C:
			s.iteration(ctx)
		case <-statsTicker.C:
			s.syncer.RecordStats(s.stats.cut(s.now()))
		}
	}
}

// TriggerRebuild requests an immediate index rebuild, for example after the
// stored schedules changed. It never blocks.
func (s *Scheduler) TriggerRebuild() {
	select {
	case s.rebuildIndexChan <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of the scheduler's state
func (s *Scheduler) Stats() Stats {
	return Stats{
		IndexSize:      s.index.Len(),
		LastIndexBuild: time.Duration(s.lastIndexBuildDuration.Load()),
		Inbox:          s.inbox.Stats(),
		Syncer:         s.syncer.GetStats(),
	}
}

// iteration performs a single main loop iteration
func (s *Scheduler) iteration(ctx context.Context) {
	now := s.now()
	s.stats.iterations.Add(1)

	s.scheduleRuns(ctx, now)
	s.forgetExpired(now)

	s.stats.observeInbox(s.inbox.Stats().CurrentDepth)
}

// scheduleRuns records and dispatches every run due in
// [now - grace period, now] that has not been dispatched yet
func (s *Scheduler) scheduleRuns(ctx context.Context, now time.Time) {
	due := s.index.Query(now.Add(-s.config.GracePeriod), now.Add(time.Nanosecond))
	expressions := s.expressions.Load()

	for _, run := range due {
		runID := run.RunID()
		state, seen := s.seen[runID]
		if seen && state.sent {
			continue
		}

		expr, ok := (*expressions)[run.ScheduleID]
		if !ok {
			// Disabled or deleted since the index was built
			continue
		}

		if !seen {
			err := s.store.CreateScheduleRun(&db.ScheduleRun{
				ScheduleID:  run.ScheduleID,
				RunID:       runID,
				ScheduledAt: run.ScheduledAt,
				Status:      db.RunPending,
			})
			if db.IsDuplicate(err) {
				// Recorded by an earlier process; do not fire twice
				s.seen[runID] = &runState{scheduledAt: run.ScheduledAt, sent: true}
				s.logger.Debug("run already recorded", "run_id", runID)
				continue
			}
			if err != nil {
				s.logger.Error("failed to record run",
					"run_id", runID,
					"schedule_id", run.ScheduleID,
					"error", err)
				continue
			}
			state = &runState{scheduledAt: run.ScheduledAt}
			s.seen[runID] = state
		}

		d := Dispatch{
			RunID:       runID,
			ScheduleID:  run.ScheduleID,
			ScheduledAt: run.ScheduledAt,
			Expression:  expr,
		}
		if !s.inbox.Send(ctx, d) {
			if ctx.Err() == nil {
				// Inbox is saturated; the rest waits for the next tick
				s.stats.sendTimeouts.Add(1)
			}
			return
		}

		state.sent = true
		s.stats.dispatched.Add(1)
		s.logger.Debug("dispatched run",
			"run_id", runID,
			"schedule_id", run.ScheduleID,
			"scheduled_at", run.ScheduledAt)
	}
}

// forgetExpired drops runs that fell out of the grace period
func (s *Scheduler) forgetExpired(now time.Time) {
	cutoff := now.Add(-s.config.GracePeriod)
	for runID, state := range s.seen {
		if !state.scheduledAt.Before(cutoff) {
			continue
		}
		if !state.sent {
			s.logger.Warn("run missed its grace period",
				"run_id", runID,
				"scheduled_at", state.scheduledAt)
		}
		delete(s.seen, runID)
	}
}

// runWorker executes dispatched runs until ctx is cancelled. Dispatches
// still queued at that point are left to handleShutdown.
func (s *Scheduler) runWorker(ctx context.Context, id int) {
	for ctx.Err() == nil {
		d, ok := s.inbox.Receive(ctx)
		if !ok {
			break
		}
		s.execute(ctx, d)
	}
	s.logger.Debug("worker stopped", "worker", id)
}

func (s *Scheduler) execute(ctx context.Context, d Dispatch) {
	firedAt := s.now()
	start := time.Now()

	hctx, cancel := context.WithTimeout(ctx, s.config.HandlerTimeout)
	err := s.callHandler(hctx, d)
	cancel()

	result := RunResult{
		RunID:      d.RunID,
		ScheduleID: d.ScheduleID,
		FiredAt:    firedAt,
		Duration:   time.Since(start),
		Err:        err,
	}

	if err != nil {
		s.stats.failed.Add(1)
		s.logger.Error("run failed",
			"run_id", d.RunID,
			"schedule_id", d.ScheduleID,
			"duration", result.Duration,
			"error", err)
	} else {
		s.stats.succeeded.Add(1)
		s.logger.Info("run completed",
			"run_id", d.RunID,
			"schedule_id", d.ScheduleID,
			"duration", result.Duration)
	}

	s.syncer.RecordResult(result)
}

func (s *Scheduler) callHandler(ctx context.Context, d Dispatch) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return s.handler(ctx, d)
}

// runIndexBuilder periodically rebuilds the scheduled run index
func (s *Scheduler) runIndexBuilder(ctx context.Context) {
	ticker := time.NewTicker(s.config.IndexRebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			_ = s.performIndexBuild()

		case <-s.rebuildIndexChan:
			_ = s.performIndexBuild()
		}
	}
}

// performIndexBuild loads the enabled schedules and rebuilds the index over
// [now - grace period, now + lookahead window)
func (s *Scheduler) performIndexBuild() error {
	buildStart := time.Now()
	now := s.now()
	start := now.Add(-s.config.GracePeriod)
	end := now.Add(s.config.LookaheadWindow)

	schedules, err := s.store.GetEnabledSchedules()
	if err != nil {
		s.logger.Error("failed to query schedules", "error", err)
		return fmt.Errorf("failed to query schedules: %w", err)
	}

	sources := make([]index.Source, 0, len(schedules))
	expressions := make(map[string]string, len(schedules))
	for _, sched := range schedules {
		parsed, err := s.parse(sched)
		if err != nil {
			s.stats.parseErrors.Add(1)
			s.logger.Error("failed to parse schedule",
				"schedule_id", sched.ID,
				"expression", sched.Expression,
				"error", err)
			continue
		}
		sources = append(sources, index.Source{ScheduleID: sched.ID, Schedule: parsed})
		expressions[sched.ID] = parsed.String()
	}

	runs := index.Generate(sources, start, end)

	s.expressions.Store(&expressions)
	s.index.Swap(runs)

	duration := time.Since(buildStart)
	s.stats.indexBuilds.Add(1)
	s.lastIndexBuildDuration.Store(int64(duration))

	s.logger.Info("index build complete",
		"run_count", len(runs),
		"schedule_count", len(sources),
		"duration", duration)

	return nil
}

// parse compiles a stored schedule. The canonical form is authoritative;
// rows without one fall back to the raw expression, hron first, then cron.
func (s *Scheduler) parse(sched db.Schedule) (*hron.Schedule, error) {
	if sched.Canonical != "" {
		return hron.Parse(sched.Canonical, s.parseOpts...)
	}
	parsed, err := hron.Parse(sched.Expression, s.parseOpts...)
	if err == nil {
		return parsed, nil
	}
	if fromCron, cronErr := hron.FromCron(sched.Expression, s.parseOpts...); cronErr == nil {
		return fromCron, nil
	}
	return nil, err
}

// handleShutdown waits for the workers and the index builder, fails the
// runs left in the inbox, then flushes the final stats period and the syncer
func (s *Scheduler) handleShutdown(wg *sync.WaitGroup) error {
	s.logger.Info("shutting down scheduler")

	wg.Wait()
	s.abandonQueued()

	s.syncer.RecordStats(s.stats.cut(s.now()))
	s.syncer.Shutdown()

	s.logger.Info("scheduler shutdown complete")
	return nil
}

// abandonQueued records every dispatch no worker picked up as failed, so
// no run stays pending after a shutdown.
func (s *Scheduler) abandonQueued() {
	now := s.now()
	for {
		d, ok := s.inbox.TryReceive()
		if !ok {
			return
		}
		s.stats.failed.Add(1)
		s.logger.Warn("run abandoned at shutdown",
			"run_id", d.RunID,
			"schedule_id", d.ScheduleID,
			"scheduled_at", d.ScheduledAt)
		s.syncer.RecordResult(RunResult{
			RunID:      d.RunID,
			ScheduleID: d.ScheduleID,
			FiredAt:    now,
			Err:        ErrAbandoned,
		})
	}
}
