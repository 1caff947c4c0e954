package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// StampLayout is the accessed_at format. Fixed width keeps string order chronological.
const StampLayout = "2006-01-02T15:04:05.000000"

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for run stamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Stamp formats t as an accessed_at value.
func Stamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}
