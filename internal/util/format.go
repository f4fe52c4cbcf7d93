package util

import (
	"fmt"
	"time"
)

// FormatMinutes renders a minute count as "2h 15m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatDuration renders a duration as "1h 3m" or "3m 20s".
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	seconds := int(d.Seconds()) % 60
	if seconds > 0 && minutes < 10 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatTimestamp renders an instant for log and status output.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
