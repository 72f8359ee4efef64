package door_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-gatekeeper/internal/door"
)

// recordingActuator captures every commanded angle.
type recordingActuator struct {
	angles []int
	err    error
}

func (a *recordingActuator) SetPosition(angleDegrees int) error {
	a.angles = append(a.angles, angleDegrees)
	return a.err
}

// TestOpenCloseTransitions validates the basic state machine and that each
// transition issues exactly one actuation at the configured angle.
func TestOpenCloseTransitions(t *testing.T) {
	act := &recordingActuator{}
	c := door.NewController(act, door.DefaultConfig())
	t0 := time.Unix(1000, 0)

	require.Equal(t, door.StateClosed, c.State())

	require.True(t, c.Open(t0))
	assert.Equal(t, door.StateOpen, c.State())
	assert.Equal(t, []int{door.DefaultOpenAngle}, act.angles)

	require.True(t, c.Close())
	assert.Equal(t, door.StateClosed, c.State())
	assert.Equal(t, []int{door.DefaultOpenAngle, door.DefaultCloseAngle}, act.angles)
}

// TestOpenIdempotent validates that a second Open while already open is a
// no-op and does NOT reset the open timestamp: the door still auto-closes
// relative to the FIRST open.
//
// Scenario:
//  1. Open at t0
//  2. Open again at t0+2s (no-op, no actuation, no timestamp reset)
//  3. Tick at t0+2999ms → still open (boundary, strict >=)
//  4. Tick at t0+3000ms → closed
func TestOpenIdempotent(t *testing.T) {
	act := &recordingActuator{}
	c := door.NewController(act, door.DefaultConfig())
	t0 := time.Unix(1000, 0)

	require.True(t, c.Open(t0))
	require.False(t, c.Open(t0.Add(2*time.Second)), "second open must be a no-op")
	assert.Len(t, act.angles, 1, "no duplicate actuation")

	assert.False(t, c.Tick(t0.Add(2999*time.Millisecond)))
	assert.Equal(t, door.StateOpen, c.State(), "still open 1ms before the deadline")

	assert.True(t, c.Tick(t0.Add(3000*time.Millisecond)))
	assert.Equal(t, door.StateClosed, c.State(), "auto-closed exactly at openedAt+3000ms")
}

// TestCloseIdempotent validates Close on an already-closed door.
func TestCloseIdempotent(t *testing.T) {
	act := &recordingActuator{}
	c := door.NewController(act, door.DefaultConfig())

	assert.False(t, c.Close())
	assert.Empty(t, act.angles, "closing a closed door must not actuate")
}

// TestTickWhileClosed validates that Tick on a closed door never actuates.
func TestTickWhileClosed(t *testing.T) {
	act := &recordingActuator{}
	c := door.NewController(act, door.DefaultConfig())

	assert.False(t, c.Tick(time.Unix(2000, 0)))
	assert.Empty(t, act.angles)
}

// TestActuatorFailureDoesNotWedge validates that a failing actuator still
// lets the state machine transition - failures are reported, never fatal.
func TestActuatorFailureDoesNotWedge(t *testing.T) {
	act := &recordingActuator{err: errors.New("servo jammed")}
	c := door.NewController(act, door.DefaultConfig())
	t0 := time.Unix(1000, 0)

	require.True(t, c.Open(t0))
	assert.Equal(t, door.StateOpen, c.State())
	require.True(t, c.Close())
	assert.Equal(t, door.StateClosed, c.State())
}

// TestCustomOpenDuration validates that the auto-close deadline follows the
// configured duration, not the default.
func TestCustomOpenDuration(t *testing.T) {
	act := &recordingActuator{}
	cfg := door.Config{OpenDuration: 500 * time.Millisecond, OpenAngle: 45, CloseAngle: 5}
	c := door.NewController(act, cfg)
	t0 := time.Unix(1000, 0)

	c.Open(t0)
	assert.False(t, c.Tick(t0.Add(499*time.Millisecond)))
	assert.True(t, c.Tick(t0.Add(500*time.Millisecond)))
	assert.Equal(t, []int{45, 5}, act.angles)
}
