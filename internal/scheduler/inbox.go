package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Inbox is the queue of due runs between the main loop and the workers,
// with a bounded send timeout
type Inbox struct {
	ch      chan Dispatch
	timeout time.Duration
	logger  *slog.Logger

	totalSent     atomic.Int64
	totalReceived atomic.Int64
	timeoutCount  atomic.Int64
	maxDepthSeen  atomic.Int64
}

// InboxStats tracks inbox usage
type InboxStats struct {
	TotalSent     int64
	TotalReceived int64
	TimeoutCount  int64
	CurrentDepth  int
	MaxDepthSeen  int
}

// NewInbox creates a new inbox with the specified buffer size and timeout
func NewInbox(bufferSize int, timeout time.Duration, logger *slog.Logger) *Inbox {
	return &Inbox{
		ch:      make(chan Dispatch, bufferSize),
		timeout: timeout,
		logger:  logger,
	}
}

// Send queues a dispatch, giving up after the inbox timeout or when ctx is
// done. It reports whether the dispatch was queued.
func (ib *Inbox) Send(ctx context.Context, d Dispatch) bool {
	timer := time.NewTimer(ib.timeout)
	defer timer.Stop()

	select {
	case ib.ch <- d:
		ib.totalSent.Add(1)
		ib.updateDepth()
		return true
	case <-timer.C:
		ib.timeoutCount.Add(1)
		ib.logger.Warn("inbox send timeout",
			"run_id", d.RunID,
			"timeout", ib.timeout,
			"current_depth", len(ib.ch))
		return false
	case <-ctx.Done():
		return false
	}
}

// TryReceive attempts to receive a dispatch without blocking
func (ib *Inbox) TryReceive() (Dispatch, bool) {
	select {
	case d := <-ib.ch:
		ib.totalReceived.Add(1)
		return d, true
	default:
		return Dispatch{}, false
	}
}

// Receive blocks until a dispatch is available or ctx is done
func (ib *Inbox) Receive(ctx context.Context) (Dispatch, bool) {
	select {
	case d := <-ib.ch:
		ib.totalReceived.Add(1)
		return d, true
	case <-ctx.Done():
		return Dispatch{}, false
	}
}

func (ib *Inbox) updateDepth() {
	depth := int64(len(ib.ch))
	for {
		seen := ib.maxDepthSeen.Load()
		if depth <= seen || ib.maxDepthSeen.CompareAndSwap(seen, depth) {
			return
		}
	}
}

// Stats returns a snapshot of the inbox counters
func (ib *Inbox) Stats() InboxStats {
	return InboxStats{
		TotalSent:     ib.totalSent.Load(),
		TotalReceived: ib.totalReceived.Load(),
		TimeoutCount:  ib.timeoutCount.Load(),
		CurrentDepth:  len(ib.ch),
		MaxDepthSeen:  int(ib.maxDepthSeen.Load()),
	}
}
