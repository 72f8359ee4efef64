package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// V4L2Config describes a local camera capture.
type V4L2Config struct {
	// Device is the video device node, e.g. "/dev/video0".
	Device string
	Width  int
	Height int
	FPS    float64
}

func (c V4L2Config) validate() error {
	if c.Device == "" {
		return fmt.Errorf("v4l2: device is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("v4l2: invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("v4l2: fps %.1f out of range (0, 120]", c.FPS)
	}
	return nil
}

// V4L2Source captures grayscale frames from a local camera through a
// GStreamer pipeline:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter(GRAY8) → appsink
//
// The appsink keeps only the newest buffer and the videorate element drops
// excess frames, so the supervisor always sees the freshest capture.
type V4L2Source struct {
	cfg  V4L2Config
	mb   *mailbox
	pool *bufferPool

	mu       sync.Mutex
	pipeline *gst.Pipeline
	seq      uint64
}

// NewV4L2Source creates a source for the given device.
func NewV4L2Source(cfg V4L2Config) *V4L2Source {
	s := &V4L2Source{cfg: cfg}
	s.pool = newBufferPool(cfg.Width * cfg.Height)
	s.mb = newMailbox(func(f *vision.Frame) { s.pool.put(f.Data) })
	return s
}

// Init builds and starts the pipeline. Idempotent while running; a failed
// start tears the pipeline down and leaves the source retryable.
func (s *V4L2Source) Init(ctx context.Context) error {
	if err := s.cfg.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline != nil {
		return nil
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("v4l2: create pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return fmt.Errorf("v4l2: create v4l2src: %w", err)
	}
	src.SetProperty("device", s.cfg.Device)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("v4l2: create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return fmt.Errorf("v4l2: create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return fmt.Errorf("v4l2: create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("v4l2: create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(grayCaps(s.cfg)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("v4l2: create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(src, converter, scaler, videorate, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(src, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		_ = pipeline.SetState(gst.StateNull)
		return fmt.Errorf("v4l2: link pipeline: %w", err)
	}

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		_ = pipeline.SetState(gst.StateNull)
		return fmt.Errorf("v4l2: start pipeline: %w", err)
	}

	s.pipeline = pipeline
	slog.Info("v4l2: capture started",
		"device", s.cfg.Device,
		"width", s.cfg.Width,
		"height", s.cfg.Height,
		"fps", s.cfg.FPS,
	)
	return nil
}

// onNewSample copies the sample into a pooled buffer and publishes it.
// Individual bad samples are skipped; a single corrupted frame must not
// bring the capture down.
func (s *V4L2Source) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("v4l2: failed to pull sample, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("v4l2: sample without buffer, skipping frame")
		return gst.FlowOK
	}

	data := buffer.Map(gst.MapRead).Bytes()
	if len(data) != s.cfg.Width*s.cfg.Height {
		buffer.Unmap()
		slog.Warn("v4l2: unexpected buffer size, skipping frame",
			"got", len(data),
			"want", s.cfg.Width*s.cfg.Height,
		)
		return gst.FlowOK
	}

	buf := s.pool.get()
	copy(buf, data)
	buffer.Unmap()

	s.seq++
	s.mb.put(&vision.Frame{
		Data:      buf,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
		Timestamp: time.Now(),
		Seq:       s.seq,
		TraceID:   uuid.New().String(),
	})
	return gst.FlowOK
}

// Frame returns the latest captured frame, or nil when none is pending.
func (s *V4L2Source) Frame() *vision.Frame {
	return s.mb.take()
}

// Release returns the frame's buffer to the pool.
func (s *V4L2Source) Release(f *vision.Frame) {
	if f == nil {
		return
	}
	s.pool.put(f.Data)
}

// Stats returns capture counters.
func (s *V4L2Source) Stats() Stats {
	return s.mb.stats()
}

// Close stops the pipeline. Idempotent.
func (s *V4L2Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil
	}

	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("v4l2: stop pipeline: %w", err)
	}
	s.pipeline = nil
	s.mb.drain()

	slog.Info("v4l2: capture stopped", "device", s.cfg.Device)
	return nil
}

// grayCaps builds the GRAY8 caps string, handling sub-1Hz rates the way the
// videorate element expects fractions.
func grayCaps(cfg V4L2Config) string {
	numerator, denominator := 1, 1
	if cfg.FPS < 1.0 {
		denominator = int(1.0 / cfg.FPS)
	} else {
		numerator = int(cfg.FPS)
	}
	return fmt.Sprintf(
		"video/x-raw,format=GRAY8,width=%d,height=%d,framerate=%d/%d",
		cfg.Width, cfg.Height, numerator, denominator,
	)
}
