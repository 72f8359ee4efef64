package door

import (
	"log/slog"
	"time"
)

// LogActuator and LogBuzzer are desktop stand-ins for the real drivers so
// the controller can run and be exercised on a machine without GPIO. They
// log the actuation instead of performing it.

type LogActuator struct{}

func NewLogActuator() *LogActuator { return &LogActuator{} }

func (*LogActuator) SetPosition(angleDegrees int) error {
	slog.Info("door: actuator stub", "angle", angleDegrees)
	return nil
}

type LogBuzzer struct{}

func NewLogBuzzer() *LogBuzzer { return &LogBuzzer{} }

func (*LogBuzzer) Pulse(d time.Duration) error {
	slog.Info("door: buzzer stub pulse", "duration", d)
	return nil
}

func (*LogBuzzer) Off() error { return nil }
