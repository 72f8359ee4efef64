package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-gatekeeper/internal/config"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefaultIsValid pins that a bare install starts without any config.
func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.SourceSim, cfg.Source)
	assert.False(t, cfg.Hardware)
}

// TestLoadLayering validates the precedence: defaults, then YAML, then
// environment.
func TestLoadLayering(t *testing.T) {
	path := writeYAML(t, `
source: zmq
detection:
  threshold: 30
door:
  open_duration: 5s
`)
	t.Setenv("GATE_DETECTION_THRESHOLD", "35")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.SourceZMQ, cfg.Source, "yaml overrides default")
	assert.Equal(t, 35.0, cfg.Detection.Threshold, "env overrides yaml")
	assert.Equal(t, 5*time.Second, cfg.Door.OpenDuration)
	assert.Equal(t, 160, cfg.Camera.Width, "untouched fields keep defaults")
}

// TestLoadEnvOnly validates env parsing without a file, including nested
// prefixes and durations.
func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("GATE_SOURCE", "v4l2")
	t.Setenv("GATE_CAMERA_DEVICE", "/dev/video2")
	t.Setenv("GATE_DOOR_OPEN_DURATION", "1500ms")
	t.Setenv("GATE_HARDWARE", "true")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.SourceV4L2, cfg.Source)
	assert.Equal(t, "/dev/video2", cfg.Camera.Device)
	assert.Equal(t, 1500*time.Millisecond, cfg.Door.OpenDuration)
	assert.True(t, cfg.Hardware)
}

// TestLoadMissingFile validates that a named but absent file is an error,
// not a silent fallback.
func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestValidateRejections walks the fail-fast checks.
func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*config.Config)
	}{
		{"unknown source", func(c *config.Config) { c.Source = "rtsp" }},
		{"v4l2 without device", func(c *config.Config) { c.Source = config.SourceV4L2; c.Camera.Device = "" }},
		{"zmq without endpoint", func(c *config.Config) { c.Source = config.SourceZMQ; c.Camera.Endpoint = "" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "verbose" }},
		{"zero width", func(c *config.Config) { c.Camera.Width = 0 }},
		{"absurd fps", func(c *config.Config) { c.Camera.FPS = 500 }},
		{"zero threshold", func(c *config.Config) { c.Detection.Threshold = 0 }},
		{"poll slower than detection", func(c *config.Config) { c.PollInterval = 2 * time.Second }},
		{"negative open duration", func(c *config.Config) { c.Door.OpenDuration = -time.Second }},
		{"angle out of range", func(c *config.Config) { c.Door.OpenAngle = 270 }},
		{"zero buzzer pulse", func(c *config.Config) { c.Buzzer.Pulse = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestSlogLevel validates level parsing.
func TestSlogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "debug"

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}
