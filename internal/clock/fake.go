package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Sleep advances the fake
// time instead of blocking, so a test can run a whole buzzer pulse or
// self-test sequence instantly while still observing elapsed durations.
type Fake struct {
	mu  sync.Mutex
	now time.Time

	// Slept records every Sleep duration in call order.
	Slept []time.Duration
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.Slept = append(f.Slept, d)
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
