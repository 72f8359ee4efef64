package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-gatekeeper/internal/camera"
	"github.com/e7canasta/orion-gatekeeper/internal/clock"
	"github.com/e7canasta/orion-gatekeeper/internal/config"
	"github.com/e7canasta/orion-gatekeeper/internal/console"
	"github.com/e7canasta/orion-gatekeeper/internal/door"
	"github.com/e7canasta/orion-gatekeeper/internal/events"
	"github.com/e7canasta/orion-gatekeeper/internal/selftest"
	"github.com/e7canasta/orion-gatekeeper/internal/supervisor"
	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	AutoStart bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the controller with its interactive console",
		Long: `Start the control loop and the operator console.

Detection is idle until the operator types start. Type help at the
prompt for the command list.

Example:
  gatekeeper run --config /etc/gatekeeper.yaml
  gatekeeper run --auto-start`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.AutoStart, "auto-start", false, "begin detection without waiting for the start command")

	return cmd
}

func runController(opts *RunOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			slog.Warn("source close failed", "error", err)
		}
	}()

	periph, err := buildPeripherals(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := periph.close(); err != nil {
			slog.Warn("gpio close failed", "error", err)
		}
	}()

	detector := vision.New(vision.Config{
		Threshold: cfg.Detection.Threshold,
		LogEvery:  100,
	})
	doorCtrl := door.NewController(periph.actuator, door.Config{
		OpenDuration: cfg.Door.OpenDuration,
		OpenAngle:    cfg.Door.OpenAngle,
		CloseAngle:   cfg.Door.CloseAngle,
	})
	bus := events.New()
	defer bus.Close()

	sup := supervisor.New(source, detector, doorCtrl, periph.buzzer, bus, supervisor.Config{
		DetectionInterval: cfg.Detection.Interval,
		PollInterval:      cfg.PollInterval,
		BuzzerPulse:       cfg.Buzzer.Pulse,
	}, clock.Wall())

	cons, err := console.New()
	if err != nil {
		return err
	}
	defer cons.Close()

	eventCh := make(chan events.Event, 64)
	if err := bus.Subscribe("console", eventCh); err != nil {
		return err
	}
	go cons.WatchEvents(ctx, eventCh)

	dispatcher := console.NewDispatcher(
		sup,
		func() string { return statusLine(sup, source, detector) },
		func() string {
			report := selftest.Run(ctx, periph.actuator, periph.buzzer, source, detector, clock.Wall(), selfTestConfig(cfg))
			return report.Render()
		},
		cons.Stdout(),
	)

	go cons.Run(ctx, cancel)

	if opts.AutoStart {
		if err := sup.Start(); err != nil {
			slog.Error("auto-start failed", "error", err)
		}
	}

	slog.Info("gatekeeper up",
		"source", cfg.Source,
		"hardware", cfg.Hardware,
		"threshold", cfg.Detection.Threshold,
	)

	err = sup.Run(ctx, cons.Commands(), dispatcher.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func statusLine(sup *supervisor.Supervisor, source camera.Source, detector *vision.Detector) string {
	st := sup.Stats()
	cs := source.Stats()
	return fmt.Sprintf(
		"run=%s door=%s threshold=%.1f checked=%d present=%d absent=%d missed=%d captured=%d dropped=%d",
		st.Run, st.Door, detector.Threshold(),
		st.FramesChecked, st.Presences, st.Absences, st.FramesMissed,
		cs.FramesCaptured, cs.FramesDropped,
	)
}

func selfTestConfig(cfg config.Config) selftest.Config {
	stc := selftest.DefaultConfig()
	stc.OpenAngle = cfg.Door.OpenAngle
	stc.CloseAngle = cfg.Door.CloseAngle
	stc.Pulse = cfg.Buzzer.Pulse
	return stc
}
