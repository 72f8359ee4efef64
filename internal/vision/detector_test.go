package vision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// testFrame builds a Width x Height grayscale frame filled with background,
// with the inner-half center region raised (or lowered) by delta.
func testFrame(width, height int, background uint8, delta int) *vision.Frame {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = background
	}
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			v := int(background) + delta
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			data[y*width+x] = uint8(v)
		}
	}
	return &vision.Frame{Data: data, Width: width, Height: height}
}

// TestDetectContrastBoundary validates the strict threshold comparison.
//
// Scenario:
//   - Center region at V+26, edges at V → diff 26 > 25 → presence
//   - Center region at V+25, edges at V → diff 25, NOT > 25 → no presence
func TestDetectContrastBoundary(t *testing.T) {
	det := vision.New(vision.DefaultConfig())

	require.True(t, det.Detect(testFrame(100, 100, 80, 26)),
		"contrast 26 must exceed the default threshold of 25")
	require.False(t, det.Detect(testFrame(100, 100, 80, 25)),
		"contrast of exactly 25 must not count as presence (strict >)")
}

// TestDetectDarkSubject validates that contrast is absolute: a subject
// darker than the background triggers the same as a brighter one.
func TestDetectDarkSubject(t *testing.T) {
	det := vision.New(vision.DefaultConfig())

	assert.True(t, det.Detect(testFrame(100, 100, 120, -40)))
}

// TestDetectFailsClosed validates the degenerate inputs: absent frame,
// empty buffer, and a buffer too short to reach any center sample all
// return false without panicking.
func TestDetectFailsClosed(t *testing.T) {
	det := vision.New(vision.DefaultConfig())

	assert.False(t, det.Detect(nil), "nil frame")
	assert.False(t, det.Detect(&vision.Frame{Width: 100, Height: 100}), "empty buffer")

	// One row of a claimed 100x100 frame: every center-region index is out
	// of bounds, so no sample lands and detection fails closed.
	truncated := &vision.Frame{Data: make([]byte, 100), Width: 100, Height: 100}
	assert.False(t, det.Detect(truncated), "truncated buffer")
}

// TestDetectDeterministic validates that identical frame contents produce
// identical results regardless of call history.
func TestDetectDeterministic(t *testing.T) {
	det := vision.New(vision.Config{Threshold: 25.0, LogEvery: 1})

	frame := testFrame(64, 64, 60, 40)
	first := det.Detect(frame)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, det.Detect(frame))
	}
}

// TestDetectThresholdOverride validates that the threshold is configuration,
// not a magic literal: a lowered threshold flips a borderline frame.
func TestDetectThresholdOverride(t *testing.T) {
	strict := vision.New(vision.Config{Threshold: 50.0})
	lax := vision.New(vision.Config{Threshold: 10.0})

	frame := testFrame(100, 100, 80, 30)
	assert.False(t, strict.Detect(frame))
	assert.True(t, lax.Detect(frame))
}
