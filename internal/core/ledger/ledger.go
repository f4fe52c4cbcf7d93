// Package ledger owns per-app per-date usage minutes and day-pass flags and
// answers the single enforcement question: is this app over budget today.
package ledger

import (
	"fmt"
	"sync"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/core/registry"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

// Notifier receives lock-state transitions. The presentation layer shows or
// clears the blocking screen in response; the core never renders anything.
type Notifier interface {
	// Lock fires when an app's budget decision transitions to exceeded.
	Lock(packageID string)
	// Release fires when enforcement relaxes: a rollover completed or a
	// day pass was granted.
	Release(reason string)
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) Lock(string)    {}
func (NopNotifier) Release(string) {}

// Ledger tracks usage through the persistence store. A single mutex
// serializes increments so ticks for the same (package, date) key are never
// lost to interleaving.
type Ledger struct {
	store    store.Store
	registry *registry.Registry
	notifier Notifier
	mu       sync.Mutex
}

func New(st store.Store, reg *registry.Registry, notifier Notifier) *Ledger {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Ledger{store: st, registry: reg, notifier: notifier}
}

// Key markers, shared with the rollover sweep which parses dates back out
// of stored keys.
const (
	UsageKeyMarker   = "_usage_"
	DayPassKeyMarker = "_day_pass_"
)

// UsageKey builds the storage key for (packageID, date) usage minutes.
func UsageKey(packageID, date string) string {
	return fmt.Sprintf("%s%s%s", packageID, UsageKeyMarker, date)
}

// DayPassKey builds the storage key for a (packageID, date) day pass.
func DayPassKey(packageID, date string) string {
	return fmt.Sprintf("%s%s%s", packageID, DayPassKeyMarker, date)
}

func usageKey(packageID, date string) string { return UsageKey(packageID, date) }

func dayPassKey(packageID, date string) string { return DayPassKey(packageID, date) }

func lastUsedKey(packageID string) string {
	return packageID + "_last_used"
}

// RecordTick adds one minute of usage for (packageID, date). Ticks for
// unmonitored apps are dropped without error; callers are expected to filter
// but the ledger must stay safe when they do not. When the increment pushes
// usage to the limit, the lock signal fires.
func (l *Ledger) RecordTick(packageID, date string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ns := constants.UsageNamespace
	if !l.registry.IsMonitored(packageID) {
		l.store.Commit(ns)
		return
	}

	wasOver := l.isOverBudgetLocked(packageID, date)

	usage := store.GetInt(l.store, ns, usageKey(packageID, date), 0)
	usage += constants.UsageTickMinutes
	if err := store.PutInt(l.store, ns, usageKey(packageID, date), usage); err != nil {
		util.LogErrorf("ledger: usage write for %s failed: %v", packageID, err)
		return
	}
	store.PutString(l.store, ns, lastUsedKey(packageID), date)

	if !l.store.Commit(ns) {
		util.LogErrorf("ledger: commit failed recording tick for %s on %s", packageID, date)
		return
	}
	util.LogDebugf("ledger: %s usage on %s is now %d minutes", packageID, date, usage)

	if !wasOver && l.isOverBudgetLocked(packageID, date) {
		util.LogInfof("ledger: %s reached its limit on %s", packageID, date)
		l.notifier.Lock(packageID)
	}
}

// IsOverBudget reports whether the app has exhausted its budget for the
// date. Unmonitored apps and apps holding a day pass are never over budget.
// Reaching the limit exactly counts as exceeded.
func (l *Ledger) IsOverBudget(packageID, date string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isOverBudgetLocked(packageID, date)
}

func (l *Ledger) isOverBudgetLocked(packageID, date string) bool {
	if !l.registry.IsMonitored(packageID) {
		return false
	}
	if store.GetBool(l.store, constants.UsageNamespace, dayPassKey(packageID, date), false) {
		return false
	}
	limit := l.registry.CurrentLimit(packageID)
	if limit == constants.UnlimitedMinutes {
		return false
	}
	usage := store.GetInt(l.store, constants.UsageNamespace, usageKey(packageID, date), 0)
	return usage >= limit
}

// UsageMinutes returns recorded usage for (packageID, date).
func (l *Ledger) UsageMinutes(packageID, date string) int {
	return store.GetInt(l.store, constants.UsageNamespace, usageKey(packageID, date), 0)
}

// HasDayPass reports whether a day pass covers (packageID, date).
func (l *Ledger) HasDayPass(packageID, date string) bool {
	return store.GetBool(l.store, constants.UsageNamespace, dayPassKey(packageID, date), false)
}

// LastUsedDate returns the date the app last recorded usage, or "".
func (l *Ledger) LastUsedDate(packageID string) string {
	return store.GetString(l.store, constants.UsageNamespace, lastUsedKey(packageID), "")
}

// GrantDayPass lifts the limit for one app for exactly one date. The flag
// never carries to the next date.
func (l *Ledger) GrantDayPass(packageID, date string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ns := constants.UsageNamespace
	if err := store.PutBool(l.store, ns, dayPassKey(packageID, date), true); err != nil {
		util.LogErrorf("ledger: day pass write for %s failed: %v", packageID, err)
		return
	}
	if !l.store.Commit(ns) {
		util.LogErrorf("ledger: commit failed granting day pass for %s on %s", packageID, date)
		return
	}
	util.LogInfof("ledger: day pass granted for %s on %s", packageID, date)
	l.notifier.Release("day_pass")
}

// GrantDayPassAll grants a day pass to every monitored app for the date in
// one batch. This is an explicit user-visible operation, never a side effect.
func (l *Ledger) GrantDayPassAll(date string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ns := constants.UsageNamespace
	packages := l.registry.Packages()
	for _, pkg := range packages {
		if err := store.PutBool(l.store, ns, dayPassKey(pkg, date), true); err != nil {
			util.LogErrorf("ledger: day pass write for %s failed: %v", pkg, err)
		}
	}
	if !l.store.Commit(ns) {
		util.LogErrorf("ledger: commit failed granting day passes on %s", date)
		return
	}
	util.LogInfof("ledger: day pass granted to all %d monitored apps on %s", len(packages), date)
	l.notifier.Release("day_pass_all")
}
