package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// SimConfig tunes the synthetic frame generator.
type SimConfig struct {
	Width  int
	Height int
	FPS    float64

	// Background is the uniform brightness of the frame.
	Background uint8

	// Contrast is the brightness lift of the center rectangle during the
	// presence phase. With the default detection threshold of 25 a value
	// above 25 triggers presence, a value of 25 or below does not.
	Contrast uint8

	// TogglePeriod alternates the generator between presence and absence
	// phases. The presence phase comes first.
	TogglePeriod time.Duration
}

// DefaultSimConfig returns a generator that alternates presence and absence
// every five seconds at walking-pace resolution.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Width:        160,
		Height:       120,
		FPS:          10,
		Background:   40,
		Contrast:     40,
		TogglePeriod: 5 * time.Second,
	}
}

func (c SimConfig) validate() error {
	if c.Width < 32 || c.Height < 32 {
		return fmt.Errorf("sim: frame %dx%d too small, need at least 32x32", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("sim: fps %.1f out of range (0, 120]", c.FPS)
	}
	if c.TogglePeriod <= 0 {
		return fmt.Errorf("sim: toggle period must be positive, got %v", c.TogglePeriod)
	}
	return nil
}

// SimSource generates deterministic grayscale frames without hardware: a
// uniform background with a bright rectangle over the inner half of the
// frame during presence phases. Useful for desktop runs and soak tests.
type SimSource struct {
	cfg  SimConfig
	mb   *mailbox
	pool *bufferPool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSimSource creates a generator. Zero-valued fields fall back to
// DefaultSimConfig.
func NewSimSource(cfg SimConfig) *SimSource {
	def := DefaultSimConfig()
	if cfg.Width == 0 {
		cfg.Width = def.Width
	}
	if cfg.Height == 0 {
		cfg.Height = def.Height
	}
	if cfg.FPS == 0 {
		cfg.FPS = def.FPS
	}
	if cfg.Background == 0 {
		cfg.Background = def.Background
	}
	if cfg.Contrast == 0 {
		cfg.Contrast = def.Contrast
	}
	if cfg.TogglePeriod == 0 {
		cfg.TogglePeriod = def.TogglePeriod
	}

	s := &SimSource{cfg: cfg}
	s.pool = newBufferPool(cfg.Width * cfg.Height)
	s.mb = newMailbox(func(f *vision.Frame) { s.pool.put(f.Data) })
	return s
}

// Init starts the generator goroutine. Idempotent while running.
func (s *SimSource) Init(ctx context.Context) error {
	if err := s.cfg.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.generate(runCtx)

	slog.Info("sim: generator started",
		"width", s.cfg.Width,
		"height", s.cfg.Height,
		"fps", s.cfg.FPS,
		"toggle_period", s.cfg.TogglePeriod,
	)
	return nil
}

func (s *SimSource) generate(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(float64(time.Second) / s.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	framesPerPhase := int(s.cfg.FPS * s.cfg.TogglePeriod.Seconds())
	if framesPerPhase < 1 {
		framesPerPhase = 1
	}

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		seq++
		present := (int(seq-1)/framesPerPhase)%2 == 0

		buf := s.pool.get()
		s.render(buf, present)

		s.mb.put(&vision.Frame{
			Data:      buf,
			Width:     s.cfg.Width,
			Height:    s.cfg.Height,
			Timestamp: time.Now(),
			Seq:       seq,
			TraceID:   uuid.New().String(),
		})
	}
}

// render fills buf with the background and, when present, lifts the inner
// half of the frame by Contrast. The rectangle covers exactly the region the
// detector samples for its center mean and stays clear of the edge strips.
func (s *SimSource) render(buf []byte, present bool) {
	w, h := s.cfg.Width, s.cfg.Height
	for i := range buf {
		buf[i] = s.cfg.Background
	}
	if !present {
		return
	}

	lifted := s.cfg.Background
	if int(lifted)+int(s.cfg.Contrast) > 255 {
		lifted = 255
	} else {
		lifted += s.cfg.Contrast
	}

	for y := h / 4; y < 3*h/4; y++ {
		row := y * w
		for x := w / 4; x < 3*w/4; x++ {
			buf[row+x] = lifted
		}
	}
}

// Frame returns the latest generated frame, or nil when none is pending.
func (s *SimSource) Frame() *vision.Frame {
	return s.mb.take()
}

// Release returns the frame's buffer to the pool.
func (s *SimSource) Release(f *vision.Frame) {
	if f == nil {
		return
	}
	s.pool.put(f.Data)
}

// Stats returns capture counters.
func (s *SimSource) Stats() Stats {
	return s.mb.stats()
}

// Close stops the generator. Idempotent.
func (s *SimSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	s.cancel()
	s.wg.Wait()
	s.mb.drain()
	s.running = false

	slog.Info("sim: generator stopped")
	return nil
}
