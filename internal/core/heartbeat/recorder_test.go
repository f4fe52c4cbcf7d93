package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

var t0 = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func TestRecordNowAppendsAndSetsLast(t *testing.T) {
	st := store.NewMemoryStore()
	clock := util.NewFakeClock(t0)
	rec := NewRecorder(st, clock)

	_, ok := rec.Last()
	assert.False(t, ok, "no heartbeat before the first record")

	rec.RecordNow()
	clock.Advance(time.Minute)
	rec.RecordNow()

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute).UnixMilli(), last.UnixMilli())

	history := rec.History()
	require.Len(t, history, 2)
	assert.Equal(t, t0.UnixMilli(), history[0].UnixMilli())
	assert.True(t, history[0].Before(history[1]), "history is ordered oldest first")
}

func TestHistoryEvictsOldestBeyondCap(t *testing.T) {
	st := store.NewMemoryStore()
	clock := util.NewFakeClock(t0)
	rec := NewRecorder(st, clock)

	total := constants.HeartbeatHistoryCap + 10
	for i := 0; i < total; i++ {
		rec.RecordNow()
		clock.Advance(time.Second)
	}

	history := rec.History()
	require.Len(t, history, constants.HeartbeatHistoryCap)
	// The oldest 10 entries were evicted.
	assert.Equal(t, t0.Add(10*time.Second).UnixMilli(), history[0].UnixMilli())
}

func TestRecordNowKeepsTrailWhenHistoryReadFails(t *testing.T) {
	st := store.NewMemoryStore()
	clock := util.NewFakeClock(t0)
	rec := NewRecorder(st, clock)

	for i := 0; i < 10; i++ {
		rec.RecordNow()
		clock.Advance(time.Second)
	}

	st.FailReads = true
	rec.RecordNow()
	st.FailReads = false

	history := rec.History()
	require.Len(t, history, 10, "a failed read must not overwrite the trail")
	assert.Equal(t, t0.Add(9*time.Second).UnixMilli(), history[9].UnixMilli())

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, t0.Add(10*time.Second).UnixMilli(), last.UnixMilli(),
		"the liveness marker still advances")
}

func TestStartRecordsImmediatelyAndStopHalts(t *testing.T) {
	st := store.NewMemoryStore()
	clock := util.NewFakeClock(t0)
	rec := NewRecorderWithInterval(st, clock, 10*time.Millisecond)

	rec.Start(context.Background())
	_, ok := rec.Last()
	assert.True(t, ok, "Start appends one entry before the first tick")

	time.Sleep(50 * time.Millisecond)
	rec.Stop()
	countAtStop := len(rec.History())
	assert.Greater(t, countAtStop, 1, "periodic ticks appended entries")

	// No write may happen after Stop returns.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, countAtStop, len(rec.History()))

	// Stop is idempotent, including before any Start.
	rec.Stop()
	NewRecorder(st, clock).Stop()
}

func TestStartTwiceIsANoOp(t *testing.T) {
	st := store.NewMemoryStore()
	clock := util.NewFakeClock(t0)
	rec := NewRecorderWithInterval(st, clock, time.Hour)

	ctx := context.Background()
	rec.Start(ctx)
	first := len(rec.History())
	rec.Start(ctx)
	assert.Equal(t, first, len(rec.History()), "second Start records nothing")
	rec.Stop()
}

func TestStopViaContextCancel(t *testing.T) {
	st := store.NewMemoryStore()
	clock := util.NewFakeClock(t0)
	rec := NewRecorderWithInterval(st, clock, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	count := len(rec.History())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(rec.History()), "cancelled loop records nothing further")
	rec.Stop()
}
