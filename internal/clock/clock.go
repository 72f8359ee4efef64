// Package clock abstracts wall time so that every timing decision in the
// controller (detection cadence, door auto-close, buzzer pulses, self-test
// settle delays) can be simulated in tests without real waiting.
package clock

import "time"

// Clock provides the current time and a blocking sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Wall returns a Clock backed by the system clock.
func Wall() Clock {
	return wallClock{}
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }
