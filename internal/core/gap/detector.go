// Package gap classifies interruptions in the heartbeat trail. A long gap
// means the monitoring process was not running, which is treated as
// tampering risk.
package gap

import (
	"time"

	"github.com/yamakit/timekeeper/internal/core/constants"
	"github.com/yamakit/timekeeper/internal/util"
)

// Classification is the tamper-risk verdict for a heartbeat gap.
type Classification int

const (
	Normal Classification = iota
	Suspicious
	Breach
)

func (c Classification) String() string {
	switch c {
	case Suspicious:
		return "suspicious"
	case Breach:
		return "breach"
	default:
		return "normal"
	}
}

// BreachRecord describes one detected gap in the historical trail.
type BreachRecord struct {
	Gap        time.Duration
	LastSeen   time.Time
	DetectedAt time.Time
}

// HeartbeatSource is the read-only view of the heartbeat trail the detector
// consumes. The detector never writes.
type HeartbeatSource interface {
	Last() (time.Time, bool)
	History() []time.Time
}

// Detector classifies gaps against fixed thresholds. The disabled switch is
// for development builds only: when set, both operations report no risk and
// touch nothing.
type Detector struct {
	source   HeartbeatSource
	disabled bool
}

func NewDetector(source HeartbeatSource, disabled bool) *Detector {
	if disabled {
		util.LogWarn("gap: detection is DISABLED; this should only be used in development")
	}
	return &Detector{source: source, disabled: disabled}
}

// Check classifies the gap between now and the last recorded heartbeat.
// With no baseline heartbeat there is nothing to assess, so the first run is
// always Normal.
func (d *Detector) Check(now time.Time) Classification {
	if d.disabled {
		return Normal
	}

	last, ok := d.source.Last()
	if !ok {
		util.LogDebug("gap: no heartbeat baseline, skipping check")
		return Normal
	}

	g := now.Sub(last)
	switch {
	case g >= constants.BreachGapThreshold:
		util.LogWarnf("gap: breach, %s since last heartbeat at %s", util.FormatDuration(g), util.FormatTimestamp(last))
		return Breach
	case g >= constants.SuspiciousGapThreshold:
		util.LogWarnf("gap: suspicious, %s since last heartbeat at %s", util.FormatDuration(g), util.FormatTimestamp(last))
		return Suspicious
	default:
		return Normal
	}
}

// ScanHistory walks consecutive heartbeat pairs and reports every gap at or
// above the breach threshold. This is the forensic path; the live decision
// is Check.
func (d *Detector) ScanHistory() []BreachRecord {
	if d.disabled {
		return nil
	}

	history := d.source.History()
	if len(history) < 2 {
		return nil
	}

	var breaches []BreachRecord
	for i := 1; i < len(history); i++ {
		g := history[i].Sub(history[i-1])
		if g >= constants.BreachGapThreshold {
			breaches = append(breaches, BreachRecord{
				Gap:        g,
				LastSeen:   history[i-1],
				DetectedAt: history[i],
			})
		}
	}
	if len(breaches) > 0 {
		util.LogWarnf("gap: history scan found %d breach(es) across %d heartbeats", len(breaches), len(history))
	}
	return breaches
}

// UrgencyLevel buckets a gap duration for operator-facing output.
func UrgencyLevel(g time.Duration) string {
	switch {
	case g >= 2*time.Hour:
		return "CRITICAL"
	case g >= time.Hour:
		return "HIGH"
	case g >= 30*time.Minute:
		return "MEDIUM"
	case g >= 10*time.Minute:
		return "LOW"
	default:
		return "NORMAL"
	}
}
