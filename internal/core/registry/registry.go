// Package registry owns the set of monitored apps and their limit triples.
// It is the single fail-open point for limit lookups: anything the registry
// does not know about is unlimited.
package registry

import (
	"errors"
	"sync"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/store"
	"github.com/yamakit/timekeeper/internal/util"
)

// MonitoredApp is one app under enforcement. CurrentLimitMinutes starts at
// InitialLimitMinutes and only the daily rollover moves it, one minute per
// rollover, down toward TargetLimitMinutes.
type MonitoredApp struct {
	PackageID           string `json:"package_id"`
	DisplayName         string `json:"display_name"`
	InitialLimitMinutes int    `json:"initial_limit_minutes"`
	TargetLimitMinutes  int    `json:"target_limit_minutes"`
	CurrentLimitMinutes int    `json:"current_limit_minutes"`
}

const (
	packagesKey   = "packages"
	nameSuffix    = "_name"
	initialSuffix = "_initial_limit"
	targetSuffix  = "_target_limit"
	currentSuffix = "_current_limit"
)

// Registry reads and writes monitored apps through the persistence store.
// The store is the source of truth; the registry holds no app cache.
type Registry struct {
	store store.Store
	mu    sync.Mutex
}

func New(st store.Store) *Registry {
	return &Registry{store: st}
}

// Register adds an app with the given limit pair. It fails without mutating
// anything when the target is not strictly below the initial limit or when
// either value is not positive. Registering an existing package overwrites
// its limits and resets the current limit to the initial value.
func (r *Registry) Register(packageID, displayName string, initialLimit, targetLimit int) bool {
	if targetLimit >= initialLimit {
		util.LogWarnf("registry: rejected %s: target=%d >= initial=%d", packageID, targetLimit, initialLimit)
		return false
	}
	if initialLimit <= 0 || targetLimit <= 0 {
		util.LogWarnf("registry: rejected %s: limits must be positive (initial=%d, target=%d)", packageID, initialLimit, targetLimit)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	packages := store.GetStrings(r.store, constants.AppsNamespace, packagesKey)
	found := false
	for _, p := range packages {
		if p == packageID {
			found = true
			break
		}
	}
	if !found {
		packages = append(packages, packageID)
	}

	ns := constants.AppsNamespace
	if err := store.PutStrings(r.store, ns, packagesKey, packages); err != nil {
		util.LogErrorf("registry: persist package list failed: %v", err)
		return false
	}
	if err := errors.Join(
		store.PutString(r.store, ns, packageID+nameSuffix, displayName),
		store.PutInt(r.store, ns, packageID+initialSuffix, initialLimit),
		store.PutInt(r.store, ns, packageID+targetSuffix, targetLimit),
		store.PutInt(r.store, ns, packageID+currentSuffix, initialLimit),
	); err != nil {
		util.LogErrorf("registry: staging fields for %s failed: %v", packageID, err)
		return false
	}

	if !r.store.Commit(ns) {
		util.LogErrorf("registry: commit failed while registering %s", packageID)
		return false
	}

	util.LogInfof("registry: %s registered (initial=%d, target=%d)", packageID, initialLimit, targetLimit)
	return true
}

// Unregister removes the app and its limit fields. Historical usage records
// stay behind for the next rollover sweep.
func (r *Registry) Unregister(packageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	packages := store.GetStrings(r.store, constants.AppsNamespace, packagesKey)
	filtered := packages[:0]
	for _, p := range packages {
		if p != packageID {
			filtered = append(filtered, p)
		}
	}

	ns := constants.AppsNamespace
	if err := store.PutStrings(r.store, ns, packagesKey, filtered); err != nil {
		util.LogErrorf("registry: persist package list failed: %v", err)
		return
	}
	r.store.Remove(ns, packageID+nameSuffix)
	r.store.Remove(ns, packageID+initialSuffix)
	r.store.Remove(ns, packageID+targetSuffix)
	r.store.Remove(ns, packageID+currentSuffix)

	if !r.store.Commit(ns) {
		util.LogErrorf("registry: commit failed while unregistering %s", packageID)
		return
	}
	util.LogInfof("registry: %s unregistered", packageID)
}

// IsMonitored reports whether the package is under enforcement.
func (r *Registry) IsMonitored(packageID string) bool {
	for _, p := range store.GetStrings(r.store, constants.AppsNamespace, packagesKey) {
		if p == packageID {
			return true
		}
	}
	return false
}

// CurrentLimit returns the enforced limit for the package. Unmonitored apps
// and monitored apps with no stored limit are unlimited; every budget
// decision funnels through this one default.
func (r *Registry) CurrentLimit(packageID string) int {
	if !r.IsMonitored(packageID) {
		return constants.UnlimitedMinutes
	}
	limit := store.GetInt(r.store, constants.AppsNamespace, packageID+currentSuffix, -1)
	if limit < 0 {
		util.LogWarnf("registry: monitored app %s has no stored limit, treating as unlimited", packageID)
		return constants.UnlimitedMinutes
	}
	return limit
}

// TargetLimit returns the decay floor for the package, or -1 when absent.
func (r *Registry) TargetLimit(packageID string) int {
	return store.GetInt(r.store, constants.AppsNamespace, packageID+targetSuffix, -1)
}

// DecayLimit lowers the package's current limit by one minute, clamped to
// the target. Only the rollover scheduler calls this; the write is staged
// and becomes durable with the scheduler's commit.
func (r *Registry) DecayLimit(packageID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns := constants.AppsNamespace
	current := store.GetInt(r.store, ns, packageID+currentSuffix, -1)
	target := store.GetInt(r.store, ns, packageID+targetSuffix, -1)
	if current < 0 || target < 0 || current <= target {
		return current, false
	}

	newLimit := current - 1
	if newLimit < target {
		newLimit = target
	}
	if err := store.PutInt(r.store, ns, packageID+currentSuffix, newLimit); err != nil {
		util.LogErrorf("registry: decay write for %s failed: %v", packageID, err)
		return current, false
	}
	return newLimit, true
}

// LowerTarget tightens the decay floor. Targets may only shrink; raising a
// target would loosen enforcement that has already been promised.
func (r *Registry) LowerTarget(packageID string, newTarget int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isMonitoredLocked(packageID) {
		util.LogWarnf("registry: cannot update target for unmonitored app %s", packageID)
		return false
	}
	if newTarget <= 0 {
		return false
	}

	ns := constants.AppsNamespace
	current := store.GetInt(r.store, ns, packageID+targetSuffix, -1)
	if current >= 0 && newTarget >= current {
		util.LogWarnf("registry: target for %s may only shrink (%d -> %d rejected)", packageID, current, newTarget)
		return false
	}

	if err := store.PutInt(r.store, ns, packageID+targetSuffix, newTarget); err != nil {
		util.LogErrorf("registry: target write for %s failed: %v", packageID, err)
		return false
	}
	if !r.store.Commit(ns) {
		util.LogErrorf("registry: commit failed while lowering target for %s", packageID)
		return false
	}
	return true
}

// List returns every monitored app. Order is unspecified.
func (r *Registry) List() []MonitoredApp {
	ns := constants.AppsNamespace
	packages := store.GetStrings(r.store, ns, packagesKey)
	apps := make([]MonitoredApp, 0, len(packages))
	for _, pkg := range packages {
		apps = append(apps, MonitoredApp{
			PackageID:           pkg,
			DisplayName:         store.GetString(r.store, ns, pkg+nameSuffix, pkg),
			InitialLimitMinutes: store.GetInt(r.store, ns, pkg+initialSuffix, 0),
			TargetLimitMinutes:  store.GetInt(r.store, ns, pkg+targetSuffix, 0),
			CurrentLimitMinutes: store.GetInt(r.store, ns, pkg+currentSuffix, 0),
		})
	}
	return apps
}

// Packages returns the monitored package IDs.
func (r *Registry) Packages() []string {
	return store.GetStrings(r.store, constants.AppsNamespace, packagesKey)
}

func (r *Registry) isMonitoredLocked(packageID string) bool {
	for _, p := range store.GetStrings(r.store, constants.AppsNamespace, packagesKey) {
		if p == packageID {
			return true
		}
	}
	return false
}
