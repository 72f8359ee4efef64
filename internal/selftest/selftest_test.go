package selftest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-gatekeeper/internal/camera"
	"github.com/e7canasta/orion-gatekeeper/internal/clock"
	"github.com/e7canasta/orion-gatekeeper/internal/selftest"
	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

type fakeActuator struct {
	angles []int
	err    error
}

func (a *fakeActuator) SetPosition(angle int) error {
	a.angles = append(a.angles, angle)
	return a.err
}

type fakeBuzzer struct {
	pulses int
	err    error
}

func (b *fakeBuzzer) Pulse(time.Duration) error { b.pulses++; return b.err }
func (b *fakeBuzzer) Off() error                { return nil }

// delaySource serves a frame after a number of empty polls.
type delaySource struct {
	frame      *vision.Frame
	emptyPolls int
	initErr    error
	released   int
}

func (s *delaySource) Init(ctx context.Context) error { return s.initErr }

func (s *delaySource) Frame() *vision.Frame {
	if s.emptyPolls > 0 {
		s.emptyPolls--
		return nil
	}
	f := s.frame
	s.frame = nil
	return f
}

func (s *delaySource) Release(*vision.Frame) { s.released++ }
func (s *delaySource) Stats() camera.Stats   { return camera.Stats{} }
func (s *delaySource) Close() error          { return nil }

func grayFrame() *vision.Frame {
	const w, h = 160, 120
	data := make([]byte, w*h)
	for i := range data {
		data[i] = 40
	}
	return &vision.Frame{Data: data, Width: w, Height: h}
}

func run(t *testing.T, act *fakeActuator, buz *fakeBuzzer, src *delaySource) selftest.Report {
	t.Helper()
	return selftest.Run(
		context.Background(),
		act, buz, src,
		vision.New(vision.DefaultConfig()),
		clock.NewFake(time.Unix(1000, 0)),
		selftest.DefaultConfig(),
	)
}

// TestRunAllPass validates the happy path: three stages, servo swept both
// ways, frame consumed and released.
func TestRunAllPass(t *testing.T) {
	act := &fakeActuator{}
	src := &delaySource{frame: grayFrame(), emptyPolls: 3}
	r := run(t, act, &fakeBuzzer{}, src)

	require.True(t, r.OK(), r.Render())
	require.Len(t, r.Stages, 3)
	assert.Equal(t, []int{90, 0}, act.angles)
	assert.Equal(t, 1, src.released)
	assert.Contains(t, r.Render(), "self-test passed")
	assert.Contains(t, r.Stages[2].Note, "present=false")
}

// TestRunStagesIndependent validates that a failed servo does not mask the
// other stages.
func TestRunStagesIndependent(t *testing.T) {
	act := &fakeActuator{err: errors.New("servo jammed")}
	buz := &fakeBuzzer{}
	r := run(t, act, buz, &delaySource{frame: grayFrame()})

	assert.False(t, r.OK())
	assert.Error(t, r.Stages[0].Err)
	assert.NoError(t, r.Stages[1].Err, "buzzer stage still runs")
	assert.Equal(t, 1, buz.pulses)
	assert.NoError(t, r.Stages[2].Err, "camera stage still runs")
	assert.Contains(t, r.Render(), "self-test FAILED")
}

// TestRunCameraTimeout validates the bounded wait for a first frame.
func TestRunCameraTimeout(t *testing.T) {
	src := &delaySource{emptyPolls: 1 << 30} // never serves a frame
	r := run(t, &fakeActuator{}, &fakeBuzzer{}, src)

	require.Error(t, r.Stages[2].Err)
	assert.Contains(t, r.Stages[2].Err.Error(), "no frame within")
}

// TestRunCameraInitFailure validates the init error path.
func TestRunCameraInitFailure(t *testing.T) {
	src := &delaySource{initErr: errors.New("device busy")}
	r := run(t, &fakeActuator{}, &fakeBuzzer{}, src)

	require.Error(t, r.Stages[2].Err)
	assert.Contains(t, r.Stages[2].Err.Error(), "init")
}
