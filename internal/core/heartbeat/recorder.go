// Package heartbeat records periodic liveness proof. Each entry is a
// timestamp showing the monitoring process was alive at that instant; the
// gap detector reads the trail to decide whether monitoring was interrupted.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

const (
	lastKey    = "last_heartbeat"
	historyKey = "heartbeat_history"
)

// Recorder appends heartbeats on a fixed interval from a background loop.
// Timestamps persist as unix milliseconds; history is bounded, oldest
// evicted first.
type Recorder struct {
	store    store.Store
	clock    util.Clock
	interval time.Duration
	capacity int

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewRecorder(st store.Store, clock util.Clock) *Recorder {
	return &Recorder{
		store:    st,
		clock:    clock,
		interval: constants.HeartbeatInterval,
		capacity: constants.HeartbeatHistoryCap,
	}
}

// NewRecorderWithInterval overrides the tick interval (tests).
func NewRecorderWithInterval(st store.Store, clock util.Clock, interval time.Duration) *Recorder {
	r := NewRecorder(st, clock)
	r.interval = interval
	return r
}

// Start appends one heartbeat immediately, then keeps appending every
// interval until the context is cancelled or Stop is called. Calling Start
// on a running recorder is a no-op.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	r.mu.Unlock()

	r.RecordNow()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RecordNow()
			}
		}
	}()
	util.LogInfof("heartbeat: recorder started (interval %s)", r.interval)
}

// Stop cancels the periodic loop and waits for it to finish, so no write
// happens after Stop returns. Safe to call repeatedly or before Start.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
	util.LogInfo("heartbeat: recorder stopped")
}

// RecordNow appends a single heartbeat at the current instant. Used by the
// loop and by callers that need an immediate liveness proof.
func (r *Recorder) RecordNow() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UnixMilli()
	ns := constants.HeartbeatNamespace

	history, err := store.LoadInt64s(r.store, ns, historyKey)
	if err != nil {
		// Overwriting the trail on a failed read would erase the forensic
		// record the gap scan depends on. Keep it, still advance the
		// liveness marker.
		util.LogErrorf("heartbeat: history read failed, leaving trail untouched: %v", err)
		store.PutInt64(r.store, ns, lastKey, now)
		if !r.store.Commit(ns) {
			util.LogErrorf("heartbeat: commit failed")
		}
		return
	}
	history = append(history, now)
	if len(history) > r.capacity {
		history = history[len(history)-r.capacity:]
	}

	if err := store.PutInt64s(r.store, ns, historyKey, history); err != nil {
		util.LogErrorf("heartbeat: history write failed: %v", err)
		return
	}
	store.PutInt64(r.store, ns, lastKey, now)
	if !r.store.Commit(ns) {
		util.LogErrorf("heartbeat: commit failed")
		return
	}
	util.LogDebugf("heartbeat: recorded at %s", util.FormatTimestamp(time.UnixMilli(now)))
}

// Last returns the most recent heartbeat instant, or false when none has
// ever been recorded.
func (r *Recorder) Last() (time.Time, bool) {
	ms := store.GetInt64(r.store, constants.HeartbeatNamespace, lastKey, 0)
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// History returns the bounded heartbeat trail, oldest first.
func (r *Recorder) History() []time.Time {
	raw := store.GetInt64s(r.store, constants.HeartbeatNamespace, historyKey)
	out := make([]time.Time, 0, len(raw))
	for _, ms := range raw {
		out = append(out, time.UnixMilli(ms))
	}
	return out
}
