// Package camera provides the frame sources the supervisor polls.
//
// Every source follows latest-frame-wins semantics: capture runs in the
// source's own goroutine and publishes into a single-slot mailbox, and the
// supervisor takes the most recent frame without ever blocking. Frames the
// supervisor never got to are dropped and counted, not queued - for an
// access controller a stale capture is worse than a missed one.
package camera

import (
	"context"
	"time"

	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// Stats is an operational snapshot of a source.
type Stats struct {
	// FramesCaptured is the total number of frames published by the source.
	FramesCaptured uint64
	// FramesDropped counts frames overwritten in the mailbox before the
	// supervisor consumed them.
	FramesDropped uint64
	// LastFrameAt is the capture timestamp of the most recent frame.
	LastFrameAt time.Time
}

// Source is the frame acquisition contract consumed by the supervisor.
//
// Implementations must guarantee:
//   - Init is recoverable: a failed Init may be retried
//   - Init is idempotent while the source is running
//   - Frame never blocks; it returns nil when no new frame is available
//   - Release returns a frame's buffer for reuse; the frame must not be
//     touched afterwards
//   - Stats is safe to call from any goroutine
//   - Close is idempotent
type Source interface {
	// Init starts capture. On failure the source stays down and the
	// operator may retry.
	Init(ctx context.Context) error

	// Frame consumes and returns the latest captured frame, or nil when
	// none has arrived since the previous call.
	Frame() *vision.Frame

	// Release returns the frame to the source after one detection cycle.
	Release(f *vision.Frame)

	// Stats returns an operational snapshot.
	Stats() Stats

	// Close stops capture and releases acquisition resources.
	Close() error
}
