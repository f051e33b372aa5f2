package scheduler

import (
	"fmt"
	"time"
)

// SchedulerConfig defines configuration for the scheduler's main loop, its
// index builder and its workers
type SchedulerConfig struct {
	// How often the index builder queries the store and rebuilds the index
	IndexRebuildInterval time.Duration `toml:"index_rebuild_interval"`

	// How far ahead to calculate scheduled runs
	LookaheadWindow time.Duration `toml:"lookahead_window"`

	// How far back a run may still be dispatched (covers restarts and slow ticks)
	GracePeriod time.Duration `toml:"grace_period"`

	// Main loop iteration interval
	LoopInterval time.Duration `toml:"loop_interval"`

	// Inbox buffer size and send timeout
	InboxBufferSize  int           `toml:"inbox_buffer_size"`
	InboxSendTimeout time.Duration `toml:"inbox_send_timeout"`

	// Number of workers calling the handler, and how long one call may take
	Workers        int           `toml:"workers"`
	HandlerTimeout time.Duration `toml:"handler_timeout"`

	// Results waiting to be written by the syncer
	ResultBufferSize int `toml:"result_buffer_size"`

	// How often period statistics are persisted
	StatsInterval time.Duration `toml:"stats_interval"`
}

// DefaultSchedulerConfig returns scheduler configuration defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		IndexRebuildInterval: 1 * time.Minute,
		LookaheadWindow:      10 * time.Minute,
		GracePeriod:          30 * time.Second,
		LoopInterval:         1 * time.Second,
		InboxBufferSize:      1000,
		InboxSendTimeout:     5 * time.Second,
		Workers:              4,
		HandlerTimeout:       1 * time.Minute,
		ResultBufferSize:     1000,
		StatsInterval:        1 * time.Minute,
	}
}

// Validate checks the configuration and returns the first problem found
func (c SchedulerConfig) Validate() error {
	if c.IndexRebuildInterval <= 0 {
		return fmt.Errorf("IndexRebuildInterval must be positive, got %v", c.IndexRebuildInterval)
	}

	if c.LookaheadWindow <= 0 {
		return fmt.Errorf("LookaheadWindow must be positive, got %v", c.LookaheadWindow)
	}

	if c.IndexRebuildInterval >= c.LookaheadWindow {
		return fmt.Errorf("IndexRebuildInterval (%v) must be less than LookaheadWindow (%v)",
			c.IndexRebuildInterval, c.LookaheadWindow)
	}

	if c.GracePeriod <= 0 {
		return fmt.Errorf("GracePeriod must be positive, got %v", c.GracePeriod)
	}

	if c.LoopInterval <= 0 {
		return fmt.Errorf("LoopInterval must be positive, got %v", c.LoopInterval)
	}

	if c.LoopInterval >= c.GracePeriod {
		return fmt.Errorf("LoopInterval (%v) must be less than GracePeriod (%v)", c.LoopInterval, c.GracePeriod)
	}

	if c.InboxBufferSize <= 0 {
		return fmt.Errorf("InboxBufferSize must be positive, got %d", c.InboxBufferSize)
	}

	if c.InboxSendTimeout <= 0 {
		return fmt.Errorf("InboxSendTimeout must be positive, got %v", c.InboxSendTimeout)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("Workers must be positive, got %d", c.Workers)
	}

	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("HandlerTimeout must be positive, got %v", c.HandlerTimeout)
	}

	if c.ResultBufferSize <= 0 {
		return fmt.Errorf("ResultBufferSize must be positive, got %d", c.ResultBufferSize)
	}

	if c.StatsInterval <= 0 {
		return fmt.Errorf("StatsInterval must be positive, got %v", c.StatsInterval)
	}

	return nil
}
