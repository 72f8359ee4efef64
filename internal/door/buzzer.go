package door

import (
	"fmt"
	"time"

	"github.com/hjkoskel/govattu"
)

// PinBuzzer drives an active buzzer from a plain GPIO pin. Pulse blocks
// the caller for the pulse duration - an accepted trade-off in the
// single-threaded control loop, with the bound made explicit by the
// injected sleep.
type PinBuzzer struct {
	hw    govattu.Vattu
	pin   uint8
	sleep func(time.Duration)
}

// NewPinBuzzer configures the pin as an output and leaves it silent.
func NewPinBuzzer(hw govattu.Vattu, pin uint8, sleep func(time.Duration)) (*PinBuzzer, error) {
	if hw == nil {
		return nil, fmt.Errorf("door: buzzer requires hardware handle")
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	hw.PinMode(pin, govattu.ALToutput)
	hw.PinClear(pin)
	return &PinBuzzer{hw: hw, pin: pin, sleep: sleep}, nil
}

// Pulse implements Buzzer.
func (b *PinBuzzer) Pulse(d time.Duration) error {
	b.hw.PinSet(b.pin)
	b.sleep(d)
	b.hw.PinClear(b.pin)
	return nil
}

// Off implements Buzzer.
func (b *PinBuzzer) Off() error {
	b.hw.PinClear(b.pin)
	return nil
}
