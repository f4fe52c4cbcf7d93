package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", FormatMinutes(0))
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "1h 0m", FormatMinutes(60))
	assert.Equal(t, "2h 15m", FormatMinutes(135))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1h 3m", FormatDuration(63*time.Minute))
	assert.Equal(t, "3m 20s", FormatDuration(3*time.Minute+20*time.Second))
	assert.Equal(t, "45m", FormatDuration(45*time.Minute))
	assert.Equal(t, "0m", FormatDuration(0))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 27, 9, 5, 3, 0, time.UTC)
	assert.Equal(t, "2026-08-27 09:05:03", FormatTimestamp(ts))
}
