// Package config loads controller settings with a three-layer precedence:
// built-in defaults, then an optional YAML file, then GATE_-prefixed
// environment variables. Validation is fail-fast so a bad deploy dies at
// startup, not at the first door actuation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Source selects the frame acquisition backend.
const (
	SourceSim  = "sim"
	SourceV4L2 = "v4l2"
	SourceZMQ  = "zmq"
)

type CameraConfig struct {
	// Device is the v4l2 device node.
	Device string `yaml:"device" env:"DEVICE"`
	// Endpoint is the ZeroMQ feed address.
	Endpoint string  `yaml:"endpoint" env:"ENDPOINT"`
	Width    int     `yaml:"width" env:"WIDTH"`
	Height   int     `yaml:"height" env:"HEIGHT"`
	FPS      float64 `yaml:"fps" env:"FPS"`
}

type DetectionConfig struct {
	Threshold float64       `yaml:"threshold" env:"THRESHOLD"`
	Interval  time.Duration `yaml:"interval" env:"INTERVAL"`
}

type DoorConfig struct {
	OpenDuration time.Duration `yaml:"open_duration" env:"OPEN_DURATION"`
	OpenAngle    int           `yaml:"open_angle" env:"OPEN_ANGLE"`
	CloseAngle   int           `yaml:"close_angle" env:"CLOSE_ANGLE"`
	ServoPin     uint8         `yaml:"servo_pin" env:"SERVO_PIN"`
}

type BuzzerConfig struct {
	Pin   uint8         `yaml:"pin" env:"PIN"`
	Pulse time.Duration `yaml:"pulse" env:"PULSE"`
}

type SimConfig struct {
	Background   uint8         `yaml:"background" env:"BACKGROUND"`
	Contrast     uint8         `yaml:"contrast" env:"CONTRAST"`
	TogglePeriod time.Duration `yaml:"toggle_period" env:"TOGGLE_PERIOD"`
}

type Config struct {
	Source   string `yaml:"source" env:"SOURCE"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Hardware enables the GPIO servo and buzzer. Off means logging stubs,
	// for desktop development.
	Hardware bool `yaml:"hardware" env:"HARDWARE"`

	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`

	Camera    CameraConfig    `yaml:"camera" envPrefix:"CAMERA_"`
	Detection DetectionConfig `yaml:"detection" envPrefix:"DETECTION_"`
	Door      DoorConfig      `yaml:"door" envPrefix:"DOOR_"`
	Buzzer    BuzzerConfig    `yaml:"buzzer" envPrefix:"BUZZER_"`
	Sim       SimConfig       `yaml:"sim" envPrefix:"SIM_"`
}

// Default returns the settings a bare install runs with: simulated frames,
// logging stubs, production timing.
func Default() Config {
	return Config{
		Source:       SourceSim,
		LogLevel:     "info",
		Hardware:     false,
		PollInterval: 50 * time.Millisecond,
		Camera: CameraConfig{
			Device:   "/dev/video0",
			Endpoint: "tcp://127.0.0.1:5557",
			Width:    160,
			Height:   120,
			FPS:      10,
		},
		Detection: DetectionConfig{
			Threshold: 25.0,
			Interval:  time.Second,
		},
		Door: DoorConfig{
			OpenDuration: 3 * time.Second,
			OpenAngle:    90,
			CloseAngle:   0,
			ServoPin:     18,
		},
		Buzzer: BuzzerConfig{
			Pin:   23,
			Pulse: 100 * time.Millisecond,
		},
		Sim: SimConfig{
			Background:   40,
			Contrast:     40,
			TogglePeriod: 5 * time.Second,
		},
	}
}

// Load builds the effective configuration. path may be empty to skip the
// YAML layer; a named file that is missing is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "GATE_"}); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the controller cannot run with.
func (c Config) Validate() error {
	switch c.Source {
	case SourceSim, SourceV4L2, SourceZMQ:
	default:
		return fmt.Errorf("config: unknown source %q (want %s, %s or %s)",
			c.Source, SourceSim, SourceV4L2, SourceZMQ)
	}
	if c.Source == SourceV4L2 && c.Camera.Device == "" {
		return fmt.Errorf("config: v4l2 source needs camera.device")
	}
	if c.Source == SourceZMQ && c.Camera.Endpoint == "" {
		return fmt.Errorf("config: zmq source needs camera.endpoint")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("config: invalid frame size %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 120 {
		return fmt.Errorf("config: camera fps %.1f out of range (0, 120]", c.Camera.FPS)
	}
	if c.Detection.Threshold <= 0 {
		return fmt.Errorf("config: detection threshold must be positive, got %.1f", c.Detection.Threshold)
	}
	if c.Detection.Interval <= 0 {
		return fmt.Errorf("config: detection interval must be positive, got %v", c.Detection.Interval)
	}
	if c.PollInterval <= 0 || c.PollInterval > c.Detection.Interval {
		return fmt.Errorf("config: poll interval %v must be positive and at most the detection interval %v",
			c.PollInterval, c.Detection.Interval)
	}
	if c.Door.OpenDuration <= 0 {
		return fmt.Errorf("config: door open duration must be positive, got %v", c.Door.OpenDuration)
	}
	if c.Door.OpenAngle < 0 || c.Door.OpenAngle > 180 || c.Door.CloseAngle < 0 || c.Door.CloseAngle > 180 {
		return fmt.Errorf("config: door angles must be within 0..180, got open=%d close=%d",
			c.Door.OpenAngle, c.Door.CloseAngle)
	}
	if c.Buzzer.Pulse <= 0 {
		return fmt.Errorf("config: buzzer pulse must be positive, got %v", c.Buzzer.Pulse)
	}
	return nil
}

// SlogLevel parses LogLevel into a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: bad log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
