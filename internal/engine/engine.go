// Package engine ties the core components into the two control paths: the
// foreground-app event path (reconcile, tick, budget check) and the liveness
// path (gap classification, wipe on breach).
package engine

import (
	"fmt"
	"time"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/core/gap"
	"github.com/yamakit/timekeeper/internal/core/ledger"
	"github.com/yamakit/timekeeper/internal/core/registry"
	"github.com/yamakit/timekeeper/internal/core/rollover"
	"github.com/yamakit/timekeeper/internal/core/security"
	"github.com/yamakit/timekeeper/internal/util"
)

// Decision is the outcome of one foreground event.
type Decision struct {
	PackageID    string
	Date         string
	Monitored    bool
	OverBudget   bool
	UsageMinutes int
	LimitMinutes int
}

type Engine struct {
	clock       util.Clock
	registry    *registry.Registry
	ledger      *ledger.Ledger
	scheduler   *rollover.Scheduler
	detector    *gap.Detector
	coordinator *security.Coordinator
}

func New(
	clock util.Clock,
	reg *registry.Registry,
	led *ledger.Ledger,
	sched *rollover.Scheduler,
	det *gap.Detector,
	coord *security.Coordinator,
) *Engine {
	return &Engine{
		clock:       clock,
		registry:    reg,
		ledger:      led,
		scheduler:   sched,
		detector:    det,
		coordinator: coord,
	}
}

// HandleForeground processes one foreground-app change: reconcile any
// pending date rollover first, then record a usage tick and answer whether
// the app is over budget.
func (e *Engine) HandleForeground(packageID string) Decision {
	today := e.clock.Today()
	e.scheduler.Reconcile(today)
	e.ledger.RecordTick(packageID, today)

	d := Decision{
		PackageID:    packageID,
		Date:         today,
		Monitored:    e.registry.IsMonitored(packageID),
		OverBudget:   e.ledger.IsOverBudget(packageID, today),
		UsageMinutes: e.ledger.UsageMinutes(packageID, today),
		LimitMinutes: e.registry.CurrentLimit(packageID),
	}
	if d.Monitored {
		util.LogDebugf("engine: %s %d/%s minutes, over=%v", packageID, d.UsageMinutes, formatLimit(d.LimitMinutes), d.OverBudget)
	}
	return d
}

// CheckLiveness classifies the gap since the last heartbeat and wipes all
// enforcement state on a breach.
func (e *Engine) CheckLiveness(now time.Time) gap.Classification {
	c := e.detector.Check(now)
	if c == gap.Breach {
		reason := fmt.Sprintf("heartbeat gap breach detected at %s", util.FormatTimestamp(now))
		if err := e.coordinator.Wipe(reason); err != nil {
			util.LogErrorf("engine: wipe after breach incomplete: %v", err)
		}
	}
	return c
}

// ScanAtStartup inspects the persisted heartbeat trail for breaches that
// happened while the process was down and wipes when any are found.
// Returns the number of historical breaches.
func (e *Engine) ScanAtStartup() int {
	breaches := e.detector.ScanHistory()
	if len(breaches) == 0 {
		return 0
	}
	worst := breaches[0]
	for _, b := range breaches[1:] {
		if b.Gap > worst.Gap {
			worst = b
		}
	}
	reason := fmt.Sprintf("historical heartbeat gap of %s (urgency %s)", util.FormatDuration(worst.Gap), gap.UrgencyLevel(worst.Gap))
	if err := e.coordinator.Wipe(reason); err != nil {
		util.LogErrorf("engine: wipe after startup scan incomplete: %v", err)
	}
	return len(breaches)
}

func formatLimit(limit int) string {
	if limit == constants.UnlimitedMinutes {
		return "∞"
	}
	return fmt.Sprintf("%d", limit)
}
