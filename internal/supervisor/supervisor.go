// Package supervisor runs the control loop that ties frame acquisition,
// presence detection and the door actuator together.
//
// The loop is single-goroutine by construction: commands, door timing and
// detection polling all happen in one Run loop, so the door state machine
// and the detection cadence never race. Nothing in the loop is fatal; a
// failed capture or actuation is logged and counted, and the loop keeps
// going.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/orion-gatekeeper/internal/camera"
	"github.com/e7canasta/orion-gatekeeper/internal/clock"
	"github.com/e7canasta/orion-gatekeeper/internal/door"
	"github.com/e7canasta/orion-gatekeeper/internal/events"
	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

var (
	ErrAlreadyRunning = errors.New("supervisor: already running")
	ErrNotRunning     = errors.New("supervisor: not running")
)

// RunState is the supervisor's coarse run state.
type RunState int

const (
	StateStopped RunState = iota
	StateRunning
)

func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Config holds loop timing.
type Config struct {
	// DetectionInterval is the minimum spacing between detection attempts.
	// An attempt consumes the interval even when no frame was available.
	DetectionInterval time.Duration

	// PollInterval is the Run loop's wake-up period. It bounds command and
	// door auto-close latency and must be well under DetectionInterval.
	PollInterval time.Duration

	// BuzzerPulse is the audible pulse length on a negative detection.
	BuzzerPulse time.Duration
}

// DefaultConfig returns the production loop timing.
func DefaultConfig() Config {
	return Config{
		DetectionInterval: time.Second,
		PollInterval:      50 * time.Millisecond,
		BuzzerPulse:       100 * time.Millisecond,
	}
}

// Stats is an operational snapshot of the supervisor.
type Stats struct {
	Run             RunState
	Door            door.State
	FramesChecked   uint64
	Presences       uint64
	Absences        uint64
	FramesMissed    uint64
	LastDetectionAt time.Time
}

// Supervisor owns the detection loop state.
type Supervisor struct {
	source   camera.Source
	detector *vision.Detector
	door     *door.Controller
	buzzer   door.Buzzer
	bus      *events.Bus
	cfg      Config
	clk      clock.Clock

	mu            sync.Mutex
	state         RunState
	runCtx        context.Context
	lastDetection time.Time
	framesChecked uint64
	presences     uint64
	absences      uint64
	framesMissed  uint64
}

// New wires a supervisor. Zero-valued Config fields fall back to defaults.
func New(source camera.Source, detector *vision.Detector, doorCtrl *door.Controller, buzzer door.Buzzer, bus *events.Bus, cfg Config, clk clock.Clock) *Supervisor {
	def := DefaultConfig()
	if cfg.DetectionInterval == 0 {
		cfg.DetectionInterval = def.DetectionInterval
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BuzzerPulse == 0 {
		cfg.BuzzerPulse = def.BuzzerPulse
	}
	return &Supervisor{
		source:   source,
		detector: detector,
		door:     doorCtrl,
		buzzer:   buzzer,
		bus:      bus,
		cfg:      cfg,
		clk:      clk,
	}
}

// Start initializes the frame source and enables detection.
//
// A failed source init leaves the supervisor stopped and Start may be
// retried. On success the detection cadence is reset so the first poll
// detects immediately.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return ErrAlreadyRunning
	}

	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.source.Init(ctx); err != nil {
		s.publish(events.TypeInitFailed, err.Error())
		slog.Error("supervisor: source init failed", "error", err)
		return fmt.Errorf("start: %w", err)
	}

	s.state = StateRunning
	s.lastDetection = time.Time{}
	s.publish(events.TypeStarted, "")
	slog.Info("supervisor: started",
		"detection_interval", s.cfg.DetectionInterval,
		"poll_interval", s.cfg.PollInterval,
	)
	return nil
}

// Stop disables detection and forces the safe idle posture: door closed,
// buzzer silent. The frame source stays up so a later Start is cheap.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return ErrNotRunning
	}
	s.state = StateStopped

	if s.door.Close() {
		s.publish(events.TypeDoorClosed, "forced on stop")
	}
	if err := s.buzzer.Off(); err != nil {
		slog.Warn("supervisor: buzzer off failed", "error", err)
	}

	s.publish(events.TypeStopped, "")
	slog.Info("supervisor: stopped")
	return nil
}

// Poll runs one detection attempt if the cadence allows it.
//
// The cadence is consumed by the attempt, not the outcome: a poll that
// finds no frame pending still waits a full interval before the next try.
func (s *Supervisor) Poll(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}
	if !s.lastDetection.IsZero() && now.Sub(s.lastDetection) < s.cfg.DetectionInterval {
		return
	}
	s.lastDetection = now

	f := s.source.Frame()
	if f == nil {
		s.framesMissed++
		s.publish(events.TypeFrameMissed, "")
		slog.Debug("supervisor: no frame pending", "missed", s.framesMissed)
		return
	}
	defer s.source.Release(f)
	s.framesChecked++

	if s.detector.Detect(f) {
		s.presences++
		s.publish(events.TypePresence, f.TraceID)
		if s.door.Open(now) {
			s.publish(events.TypeDoorOpened, "")
		}
		return
	}

	s.absences++
	s.publish(events.TypeAbsence, f.TraceID)
	if err := s.buzzer.Pulse(s.cfg.BuzzerPulse); err != nil {
		slog.Warn("supervisor: buzzer pulse failed", "error", err)
	} else {
		s.publish(events.TypeAlarm, "")
	}
}

// Tick advances the door's auto-close timer.
func (s *Supervisor) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.door.Tick(now) {
		s.publish(events.TypeDoorClosed, "auto-close")
	}
}

// Run drives the loop until ctx is cancelled: pending commands first, then
// the door timer, then a detection poll. On cancellation a running
// supervisor is stopped so the door never stays open unattended.
func (s *Supervisor) Run(ctx context.Context, commands <-chan string, handle func(string)) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
				slog.Warn("supervisor: stop on shutdown failed", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
		}

		drained := false
		for !drained {
			select {
			case cmd, ok := <-commands:
				if !ok {
					drained = true
					break
				}
				handle(cmd)
			default:
				drained = true
			}
		}

		now := s.clk.Now()
		s.Tick(now)
		s.Poll(now)
	}
}

// Stats returns a snapshot of the loop's counters and states.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Run:             s.state,
		Door:            s.door.State(),
		FramesChecked:   s.framesChecked,
		Presences:       s.presences,
		Absences:        s.absences,
		FramesMissed:    s.framesMissed,
		LastDetectionAt: s.lastDetection,
	}
}

// publish stamps and fans out an event. Callers hold s.mu.
func (s *Supervisor) publish(t events.Type, msg string) {
	s.bus.Publish(events.Event{Type: t, At: s.clk.Now(), Message: msg})
}
