package util

import (
	"fmt"
	"sync"
	"time"
)

// DateLayout is the calendar-date form used for all per-day keys.
const DateLayout = "2006-01-02"

// Clock supplies the current instant and calendar date. All components take a
// Clock so tests can drive time deterministically.
type Clock interface {
	Now() time.Time
	Today() string
}

// SystemClock is the production Clock, reading the wall clock in a configured
// timezone. The daily rollover boundary follows this timezone.
type SystemClock struct {
	location *time.Location
	mu       sync.RWMutex
}

// NewSystemClock creates a SystemClock for the given timezone name.
// "Local" or "" selects the host timezone.
func NewSystemClock(timezone string) (*SystemClock, error) {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Asia/Tokyo", timezone, err)
		}
		loc = l
	}
	return &SystemClock{location: loc}, nil
}

// Now returns the current time in the configured timezone
func (c *SystemClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().In(c.location)
}

// Today returns the current calendar date string
func (c *SystemClock) Today() string {
	return c.Now().Format(DateLayout)
}

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock frozen at the given instant.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) Today() string {
	return c.Now().Format(DateLayout)
}

// Set moves the clock to an absolute instant.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
