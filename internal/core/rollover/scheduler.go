// Package rollover implements the once-per-date reset transaction: usage
// zeroing, day-pass expiry, limit decay, and the cursor advance that marks
// the date reconciled.
package rollover

import (
	"strings"
	"sync"
	"time"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/core/ledger"
	"github.com/yamakit/timekeeper/internal/core/registry"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

const cursorKey = "last_reset_date"

// Scheduler performs the daily reset. Every step is idempotent and the
// cursor is written last, so a crash anywhere in the sequence is repaired by
// simply running Reconcile again: zeroing an already-zero counter, clearing
// an already-clear flag, and clamped decay are all safe to repeat.
type Scheduler struct {
	store    store.Store
	registry *registry.Registry
	notifier ledger.Notifier
	mu       sync.Mutex
}

func New(st store.Store, reg *registry.Registry, notifier ledger.Notifier) *Scheduler {
	if notifier == nil {
		notifier = ledger.NopNotifier{}
	}
	return &Scheduler{store: st, registry: reg, notifier: notifier}
}

// LastResetDate returns the date of the last completed reset, or "".
func (s *Scheduler) LastResetDate() string {
	return store.GetString(s.store, constants.ResetNamespace, cursorKey, "")
}

// Reconcile runs the rollover for today if it has not run yet. Returns true
// when a rollover executed. Decay is exactly one minute per reconciliation
// regardless of how many calendar days were skipped.
func (s *Scheduler) Reconcile(today string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursor := store.GetString(s.store, constants.ResetNamespace, cursorKey, "")
	if cursor == today {
		return false
	}

	util.LogInfof("rollover: reconciling %s (last reset: %q)", today, cursor)
	packages := s.registry.Packages()

	// Step 1 and 2: zero today's usage, drop today's day-pass flags, and
	// sweep records older than the retention window.
	ns := constants.UsageNamespace
	for _, pkg := range packages {
		store.PutInt(s.store, ns, ledger.UsageKey(pkg, today), 0)
		s.store.Remove(ns, ledger.DayPassKey(pkg, today))
	}
	s.sweepStale(today)
	if !s.store.Commit(ns) {
		util.LogErrorf("rollover: usage commit failed for %s, will retry on next reconcile", today)
		return false
	}

	// Step 3: decay each app's limit one minute toward its target.
	for _, pkg := range packages {
		if newLimit, changed := s.registry.DecayLimit(pkg); changed {
			util.LogInfof("rollover: %s limit decayed to %d minutes", pkg, newLimit)
		}
	}
	if !s.store.Commit(constants.AppsNamespace) {
		util.LogErrorf("rollover: decay commit failed for %s, will retry on next reconcile", today)
		return false
	}

	// Step 4: advance the cursor only after everything above is durable.
	store.PutString(s.store, constants.ResetNamespace, cursorKey, today)
	if !s.store.Commit(constants.ResetNamespace) {
		util.LogErrorf("rollover: cursor commit failed for %s, will retry on next reconcile", today)
		return false
	}

	util.LogInfof("rollover: completed for %s (%d apps)", today, len(packages))
	s.notifier.Release("rollover")
	return true
}

// sweepStale stages removal of usage records and day-pass flags dated before
// the retention cutoff, plus any day-pass flag from a prior date that would
// otherwise linger as true. Retention is memory hygiene; budget decisions
// only ever read the current date.
func (s *Scheduler) sweepStale(today string) {
	day, err := time.Parse(util.DateLayout, today)
	if err != nil {
		util.LogWarnf("rollover: unparseable date %q, skipping sweep: %v", today, err)
		return
	}
	cutoff := day.AddDate(0, 0, -constants.UsageRetentionDays).Format(util.DateLayout)

	ns := constants.UsageNamespace
	keys, err := s.store.Keys(ns)
	if err != nil {
		util.LogWarnf("rollover: listing usage keys failed, skipping sweep: %v", err)
		return
	}

	removed := 0
	for _, key := range keys {
		if date, ok := keyDate(key, ledger.UsageKeyMarker); ok && date < cutoff {
			s.store.Remove(ns, key)
			removed++
			continue
		}
		// Day passes are scoped to exactly one date; any flag from a past
		// date is dead weight and is dropped regardless of the cutoff.
		if date, ok := keyDate(key, ledger.DayPassKeyMarker); ok && date < today {
			s.store.Remove(ns, key)
			removed++
		}
	}
	if removed > 0 {
		util.LogDebugf("rollover: swept %d stale records (cutoff %s)", removed, cutoff)
	}
}

// keyDate extracts the date suffix from a key containing the marker.
// Package IDs may contain underscores, so the split is on the last marker
// occurrence.
func keyDate(key, marker string) (string, bool) {
	idx := strings.LastIndex(key, marker)
	if idx < 0 {
		return "", false
	}
	return key[idx+len(marker):], true
}
