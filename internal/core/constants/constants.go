package constants

import "time"

const (
	// Usage accounting unit: one tick adds one minute of usage.
	UsageTickMinutes = 1

	// Heartbeat recording
	HeartbeatInterval   = 5 * time.Minute
	HeartbeatHistoryCap = 100

	// Gap classification thresholds. Both are measured against the last
	// recorded heartbeat, not against the heartbeat interval.
	SuspiciousGapThreshold = 3 * time.Minute
	BreachGapThreshold     = 5 * time.Minute

	// Usage records and day-pass flags older than this are swept on rollover.
	// Retention is memory hygiene only; budget decisions never read past dates.
	UsageRetentionDays = 7

	// UnlimitedMinutes is the fail-open sentinel limit for apps that are not
	// monitored or have no stored limit.
	UnlimitedMinutes = int(^uint(0) >> 1)
)

// Persistence namespaces. These mirror the five state areas the security
// wipe clears independently; DeviceNamespace survives a wipe.
const (
	AppsNamespace      = "monitored_apps"
	UsageNamespace     = "app_usage"
	HeartbeatNamespace = "heartbeat_log"
	ResetNamespace     = "reset_state"
	DeviceNamespace    = "device"
)
