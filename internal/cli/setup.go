package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hjkoskel/govattu"

	"github.com/e7canasta/orion-gatekeeper/internal/camera"
	"github.com/e7canasta/orion-gatekeeper/internal/config"
	"github.com/e7canasta/orion-gatekeeper/internal/door"
)

// loadConfig resolves the effective configuration and installs the default
// logger at the configured level.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return config.Config{}, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	return cfg, nil
}

// buildSource constructs the configured frame source.
func buildSource(cfg config.Config) (camera.Source, error) {
	switch cfg.Source {
	case config.SourceSim:
		return camera.NewSimSource(camera.SimConfig{
			Width:        cfg.Camera.Width,
			Height:       cfg.Camera.Height,
			FPS:          cfg.Camera.FPS,
			Background:   cfg.Sim.Background,
			Contrast:     cfg.Sim.Contrast,
			TogglePeriod: cfg.Sim.TogglePeriod,
		}), nil
	case config.SourceV4L2:
		return camera.NewV4L2Source(camera.V4L2Config{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		}), nil
	case config.SourceZMQ:
		return camera.NewZMQSource(camera.ZMQConfig{
			Endpoint: cfg.Camera.Endpoint,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			LogEvery: 50,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// peripherals bundles the door actuator and buzzer with their teardown.
type peripherals struct {
	actuator door.Actuator
	buzzer   door.Buzzer
	close    func() error
}

// buildPeripherals opens the GPIO servo and buzzer, or logging stubs when
// hardware is disabled.
func buildPeripherals(cfg config.Config) (*peripherals, error) {
	if !cfg.Hardware {
		slog.Info("hardware disabled, using logging stubs")
		return &peripherals{
			actuator: door.NewLogActuator(),
			buzzer:   door.NewLogBuzzer(),
			close:    func() error { return nil },
		}, nil
	}

	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	servo, err := door.NewServo(hw, cfg.Door.ServoPin, time.Sleep)
	if err != nil {
		_ = hw.Close()
		return nil, fmt.Errorf("servo on pin %d: %w", cfg.Door.ServoPin, err)
	}
	buzzer, err := door.NewPinBuzzer(hw, cfg.Buzzer.Pin, time.Sleep)
	if err != nil {
		_ = hw.Close()
		return nil, fmt.Errorf("buzzer on pin %d: %w", cfg.Buzzer.Pin, err)
	}

	return &peripherals{actuator: servo, buzzer: buzzer, close: hw.Close}, nil
}
