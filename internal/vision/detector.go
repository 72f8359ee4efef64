// Package vision implements the presence heuristic over grayscale frames.
//
// Detection here means a coarse brightness-contrast decision, not face
// geometry: a centered subject changes the mean brightness of the middle of
// the frame relative to the top and bottom strips. The heuristic is
// deliberately cheap, O(region area / stride), suited to a
// resource-constrained sensor.
package vision

import (
	"log/slog"
	"math"
	"sync/atomic"
)

// DefaultThreshold is the minimum center/edge brightness contrast that
// counts as presence. The comparison is strict: a difference of exactly
// DefaultThreshold is NOT presence.
const DefaultThreshold = 25.0

// Sampling geometry. The center region is the inner half of the frame on
// both axes; the edge region is two horizontal strips edgeMargin pixels
// from the top and bottom borders.
const (
	centerStride = 2
	edgeMargin   = 10
	edgeStride   = 5
)

// Config holds tuning options for the detector.
type Config struct {
	// Threshold is the contrast above which a frame counts as presence.
	Threshold float64

	// LogEvery throttles the diagnostic debug line to every Nth call.
	// Zero disables diagnostics entirely. Diagnostics never affect the
	// returned result.
	LogEvery uint64
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		LogEvery:  100,
	}
}

// Detector decides presence from a single frame.
//
// Detect is deterministic: identical frame contents produce the identical
// result regardless of call history. The only internal state is a call
// counter used to throttle diagnostic output.
type Detector struct {
	cfg   Config
	calls atomic.Uint64
}

// New creates a Detector. A zero threshold falls back to DefaultThreshold.
func New(cfg Config) *Detector {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Detector{cfg: cfg}
}

// Threshold returns the configured contrast threshold.
func (d *Detector) Threshold() float64 {
	return d.cfg.Threshold
}

// Detect reports whether a subject is present in the frame.
//
// Fails closed: a nil frame, an empty buffer, or a frame too small to
// yield any in-bounds sample in either region returns false.
func (d *Detector) Detect(f *Frame) bool {
	if f == nil || len(f.Data) == 0 {
		return false
	}

	centerAvg, ok := centerMean(f)
	if !ok {
		return false
	}
	edgeAvg, ok := edgeMean(f)
	if !ok {
		return false
	}

	diff := math.Abs(centerAvg - edgeAvg)
	present := diff > d.cfg.Threshold

	if n := d.calls.Add(1); d.cfg.LogEvery > 0 && n%d.cfg.LogEvery == 0 {
		slog.Debug("vision: contrast sample",
			"calls", n,
			"center_avg", centerAvg,
			"edge_avg", edgeAvg,
			"diff", diff,
			"present", present,
		)
	}

	return present
}

// centerMean samples the inner half of the frame on both axes, every
// centerStride-th row and column. Returns false if no sample is in bounds.
func centerMean(f *Frame) (float64, bool) {
	var sum, count int
	for y := f.Height / 4; y < 3*f.Height/4; y += centerStride {
		for x := f.Width / 4; x < 3*f.Width/4; x += centerStride {
			idx := y*f.Width + x
			if idx < len(f.Data) {
				sum += int(f.Data[idx])
				count++
			}
		}
	}
	if count == 0 {
		return 0, false
	}
	return float64(sum) / float64(count), true
}

// edgeMean samples two horizontal strips edgeMargin pixels from the top
// and bottom borders, every edgeStride-th column. Returns false if no
// sample is in bounds.
func edgeMean(f *Frame) (float64, bool) {
	var sum, count int
	rows := [2]int{edgeMargin, f.Height - edgeMargin}
	for x := edgeMargin; x < f.Width-edgeMargin; x += edgeStride {
		for _, y := range rows {
			idx := y*f.Width + x
			if idx >= 0 && idx < len(f.Data) {
				sum += int(f.Data[idx])
				count++
			}
		}
	}
	if count == 0 {
		return 0, false
	}
	return float64(sum) / float64(count), true
}
