package door

import (
	"fmt"
	"time"

	"github.com/hjkoskel/govattu"
)

// Servo pulse-width endpoints at 50 Hz, in PWM range units (~1 µs each).
// 500 µs is fully one way (0°), 2500 µs fully the other (180°).
const (
	servoPulseMin   = 500
	servoPulseMax   = 2500
	servoSweepStep  = 10
	servoSweepDelay = 2 * time.Millisecond
)

// Servo drives the door mechanism through a hobby servo on the PWM0 pin.
//
// The servo is swept between positions in small steps rather than jumped,
// which keeps the mechanism from slamming and the supply rail from sagging.
type Servo struct {
	hw      govattu.Vattu
	pin     uint8
	sleep   func(time.Duration)
	current int // current pulse width in range units
}

// NewServo configures the pin for PWM0 at 50 Hz and parks the servo at the
// close position (0°).
func NewServo(hw govattu.Vattu, pin uint8, sleep func(time.Duration)) (*Servo, error) {
	if hw == nil {
		return nil, fmt.Errorf("door: servo requires hardware handle")
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	hw.PinMode(pin, govattu.ALT5) // ALT5 routes PWM0 to the pin
	hw.PwmSetMode(true, true, false, false)
	hw.PwmSetClock(19)      // 19.2 MHz / 19 ≈ 1 MHz → 1 unit ≈ 1 µs
	hw.Pwm0SetRange(20000)  // 20 ms frame → 50 Hz

	s := &Servo{hw: hw, pin: pin, sleep: sleep, current: servoPulseMin}
	s.hw.Pwm0Set(uint32(servoPulseMin))
	return s, nil
}

// SetPosition implements Actuator. The angle is clamped to 0-180 degrees
// and mapped linearly onto the pulse-width range.
func (s *Servo) SetPosition(angleDegrees int) error {
	if angleDegrees < 0 {
		angleDegrees = 0
	}
	if angleDegrees > 180 {
		angleDegrees = 180
	}
	target := servoPulseMin + angleDegrees*(servoPulseMax-servoPulseMin)/180
	s.sweepTo(target)
	return nil
}

func (s *Servo) sweepTo(target int) {
	step := servoSweepStep
	if target < s.current {
		step = -step
	}
	for p := s.current; (step > 0 && p < target) || (step < 0 && p > target); p += step {
		s.hw.Pwm0Set(uint32(p))
		s.sleep(servoSweepDelay)
	}
	s.hw.Pwm0Set(uint32(target))
	s.current = target
}
