package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/hron/internal/testutil"
)

func TestInbox_SendReceive(t *testing.T) {
	inbox := NewInbox(10, 100*time.Millisecond, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	for i := range 3 {
		require.True(t, inbox.Send(ctx, Dispatch{RunID: string(rune('a' + i))}))
	}

	d, ok := inbox.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "a", d.RunID)

	d, ok = inbox.Receive(ctx)
	require.True(t, ok)
	assert.Equal(t, "b", d.RunID)

	stats := inbox.Stats()
	assert.Equal(t, int64(3), stats.TotalSent)
	assert.Equal(t, int64(2), stats.TotalReceived)
	assert.Equal(t, 1, stats.CurrentDepth)
	assert.Equal(t, 3, stats.MaxDepthSeen)
}

func TestInbox_TryReceive_Empty(t *testing.T) {
	inbox := NewInbox(1, time.Millisecond, slog.New(slog.DiscardHandler))

	d, ok := inbox.TryReceive()
	assert.False(t, ok)
	assert.Equal(t, Dispatch{}, d)
}

func TestInbox_SendTimeout(t *testing.T) {
	logs := testutil.NewTestLogger()
	inbox := NewInbox(1, 20*time.Millisecond, logs.Logger())
	ctx := context.Background()

	require.True(t, inbox.Send(ctx, Dispatch{RunID: "first"}))

	start := time.Now()
	assert.False(t, inbox.Send(ctx, Dispatch{RunID: "second"}))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	assert.Equal(t, int64(1), inbox.Stats().TimeoutCount)
	assert.True(t, logs.Has(slog.LevelWarn, "inbox send timeout"))
}

func TestInbox_SendCancelled(t *testing.T) {
	inbox := NewInbox(1, time.Hour, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, inbox.Send(ctx, Dispatch{RunID: "first"}))
	cancel()

	assert.False(t, inbox.Send(ctx, Dispatch{RunID: "second"}))
	assert.Equal(t, int64(0), inbox.Stats().TimeoutCount)
}

func TestInbox_ReceiveBlocksUntilSend(t *testing.T) {
	inbox := NewInbox(1, time.Second, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	received := make(chan Dispatch, 1)
	go func() {
		if d, ok := inbox.Receive(ctx); ok {
			received <- d
		}
	}()

	time.Sleep(20 * time.Millisecond)
	inbox.Send(ctx, Dispatch{RunID: "late"})

	select {
	case d := <-received:
		assert.Equal(t, "late", d.RunID)
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock")
	}
}

func TestInbox_ReceiveCancelled(t *testing.T) {
	inbox := NewInbox(1, time.Second, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := inbox.Receive(ctx)
	assert.False(t, ok)
}
