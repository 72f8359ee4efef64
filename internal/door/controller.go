// Package door implements the door state machine and its hardware drivers.
//
// The Controller owns DoorState exclusively: Closed, or Open with the
// timestamp it opened. Auto-close is driven by Tick, which must run every
// loop iteration regardless of run state - a door opened while the system
// was running must still close after the system is stopped mid-cycle.
package door

import (
	"log/slog"
	"time"
)

// DefaultOpenDuration is how long the door stays open without further
// presence input before Tick closes it again.
const DefaultOpenDuration = 3000 * time.Millisecond

// Default actuator angles for the two positions the door ever uses.
const (
	DefaultOpenAngle  = 90
	DefaultCloseAngle = 0
)

// State is the door position as tracked by the Controller.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Actuator positions the physical door mechanism. It is used with exactly
// two values: the configured open and close angles.
type Actuator interface {
	SetPosition(angleDegrees int) error
}

// Buzzer is the audible failure indicator. Pulse blocks for the pulse
// duration; Off forces silence.
type Buzzer interface {
	Pulse(d time.Duration) error
	Off() error
}

// Config holds the controller's timing and positioning constants. None of
// them are runtime-mutable.
type Config struct {
	OpenDuration time.Duration
	OpenAngle    int
	CloseAngle   int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		OpenDuration: DefaultOpenDuration,
		OpenAngle:    DefaultOpenAngle,
		CloseAngle:   DefaultCloseAngle,
	}
}

// Controller is the door state machine.
//
// Invariant: openedAt is non-zero iff state is StateOpen. Actuator errors
// are reported but never wedge the state machine - a flaky servo must not
// leave the controller believing the door is somewhere it is not commanded
// to be.
//
// Not safe for concurrent use; the supervisor loop is the single caller.
type Controller struct {
	cfg      Config
	act      Actuator
	state    State
	openedAt time.Time
}

// NewController creates a Controller in the Closed state. It does not
// actuate; callers that need the physical door parked call Close themselves.
func NewController(act Actuator, cfg Config) *Controller {
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = DefaultOpenDuration
	}
	return &Controller{cfg: cfg, act: act, state: StateClosed}
}

// State returns the current door state.
func (c *Controller) State() State {
	return c.state
}

// Open transitions Closed → Open(now) and commands the open position.
// Idempotent: when already open it does nothing and does NOT reset the
// open timestamp, so repeated presence cannot hold the door open forever.
// Reports whether a transition happened.
func (c *Controller) Open(now time.Time) bool {
	if c.state == StateOpen {
		return false
	}
	c.state = StateOpen
	c.openedAt = now
	if err := c.act.SetPosition(c.cfg.OpenAngle); err != nil {
		slog.Error("door: open actuation failed", "angle", c.cfg.OpenAngle, "error", err)
	}
	return true
}

// Close transitions Open → Closed and commands the close position.
// Idempotent. Reports whether a transition happened.
func (c *Controller) Close() bool {
	if c.state == StateClosed {
		return false
	}
	c.state = StateClosed
	c.openedAt = time.Time{}
	if err := c.act.SetPosition(c.cfg.CloseAngle); err != nil {
		slog.Error("door: close actuation failed", "angle", c.cfg.CloseAngle, "error", err)
	}
	return true
}

// Tick auto-closes the door once the open period has elapsed. It must be
// called every loop iteration. Reports whether it closed the door.
func (c *Controller) Tick(now time.Time) bool {
	if c.state != StateOpen {
		return false
	}
	if now.Sub(c.openedAt) < c.cfg.OpenDuration {
		return false
	}
	return c.Close()
}
