// Package selftest exercises the controller's peripherals end to end: a
// servo sweep, a buzzer chirp and one full capture-and-detect cycle. It is
// wired to the console's test command and to a standalone CLI command for
// commissioning a new install.
package selftest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/e7canasta/orion-gatekeeper/internal/camera"
	"github.com/e7canasta/orion-gatekeeper/internal/clock"
	"github.com/e7canasta/orion-gatekeeper/internal/door"
	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// Config tunes the exercise.
type Config struct {
	OpenAngle  int
	CloseAngle int

	// Settle is the pause after each servo move.
	Settle time.Duration

	// Pulse is the buzzer chirp length.
	Pulse time.Duration

	// FrameWait bounds how long the camera stage waits for a first frame,
	// polling every PollEvery.
	FrameWait time.Duration
	PollEvery time.Duration
}

// DefaultConfig returns commissioning defaults.
func DefaultConfig() Config {
	return Config{
		OpenAngle:  door.DefaultOpenAngle,
		CloseAngle: door.DefaultCloseAngle,
		Settle:     500 * time.Millisecond,
		Pulse:      100 * time.Millisecond,
		FrameWait:  3 * time.Second,
		PollEvery:  50 * time.Millisecond,
	}
}

// Stage is one exercised peripheral.
type Stage struct {
	Name string
	Err  error
	Note string
}

// Report collects the stage outcomes.
type Report struct {
	Stages []Stage
}

// OK reports whether every stage passed.
func (r Report) OK() bool {
	for _, s := range r.Stages {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Render formats the report for the operator.
func (r Report) Render() string {
	var b strings.Builder
	for _, s := range r.Stages {
		switch {
		case s.Err != nil:
			fmt.Fprintf(&b, "%-7s FAILED: %v\n", s.Name, s.Err)
		case s.Note != "":
			fmt.Fprintf(&b, "%-7s ok (%s)\n", s.Name, s.Note)
		default:
			fmt.Fprintf(&b, "%-7s ok\n", s.Name)
		}
	}
	if r.OK() {
		b.WriteString("self-test passed\n")
	} else {
		b.WriteString("self-test FAILED\n")
	}
	return b.String()
}

// Run exercises servo, buzzer and camera in order. Every stage runs even
// when an earlier one fails, so one broken peripheral doesn't mask another.
func Run(ctx context.Context, actuator door.Actuator, buzzer door.Buzzer, source camera.Source, detector *vision.Detector, clk clock.Clock, cfg Config) Report {
	var r Report
	slog.Info("selftest: starting")

	r.Stages = append(r.Stages, servoStage(actuator, clk, cfg))
	r.Stages = append(r.Stages, buzzerStage(buzzer, cfg))
	r.Stages = append(r.Stages, cameraStage(ctx, source, detector, clk, cfg))

	slog.Info("selftest: finished", "ok", r.OK())
	return r
}

func servoStage(actuator door.Actuator, clk clock.Clock, cfg Config) Stage {
	s := Stage{Name: "servo"}
	if err := actuator.SetPosition(cfg.OpenAngle); err != nil {
		s.Err = fmt.Errorf("sweep to open: %w", err)
		return s
	}
	clk.Sleep(cfg.Settle)
	if err := actuator.SetPosition(cfg.CloseAngle); err != nil {
		s.Err = fmt.Errorf("sweep to close: %w", err)
		return s
	}
	clk.Sleep(cfg.Settle)
	s.Note = fmt.Sprintf("swept %d to %d degrees", cfg.OpenAngle, cfg.CloseAngle)
	return s
}

func buzzerStage(buzzer door.Buzzer, cfg Config) Stage {
	s := Stage{Name: "buzzer"}
	if err := buzzer.Pulse(cfg.Pulse); err != nil {
		s.Err = fmt.Errorf("pulse: %w", err)
	}
	return s
}

func cameraStage(ctx context.Context, source camera.Source, detector *vision.Detector, clk clock.Clock, cfg Config) Stage {
	s := Stage{Name: "camera"}
	if err := source.Init(ctx); err != nil {
		s.Err = fmt.Errorf("init: %w", err)
		return s
	}

	deadline := clk.Now().Add(cfg.FrameWait)
	var f *vision.Frame
	for f == nil {
		f = source.Frame()
		if f != nil {
			break
		}
		if !clk.Now().Before(deadline) {
			s.Err = fmt.Errorf("no frame within %v", cfg.FrameWait)
			return s
		}
		clk.Sleep(cfg.PollEvery)
	}
	defer source.Release(f)

	s.Note = fmt.Sprintf("%dx%d frame, present=%t", f.Width, f.Height, detector.Detect(f))
	return s
}
