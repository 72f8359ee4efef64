package console

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/e7canasta/orion-gatekeeper/internal/supervisor"
)

// Controls is the slice of the supervisor the dispatcher drives.
type Controls interface {
	Start() error
	Stop() error
}

// Dispatcher maps command lines onto controller actions. It runs on the
// control loop goroutine, so handlers must stay short.
type Dispatcher struct {
	controls Controls
	status   func() string
	selfTest func() string
	out      io.Writer
}

// NewDispatcher wires a dispatcher. status and selfTest may be nil, which
// disables the corresponding commands with a notice.
func NewDispatcher(controls Controls, status, selfTest func() string, out io.Writer) *Dispatcher {
	return &Dispatcher{
		controls: controls,
		status:   status,
		selfTest: selfTest,
		out:      out,
	}
}

// Handle executes one command line. Only the first word counts; matching is
// case-insensitive and unrecognized input is ignored.
func (d *Dispatcher) Handle(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		switch err := d.controls.Start(); {
		case err == nil:
			fmt.Fprintln(d.out, "detection started")
		case errors.Is(err, supervisor.ErrAlreadyRunning):
			fmt.Fprintln(d.out, "already running")
		default:
			fmt.Fprintln(d.out, "start failed:", err)
		}

	case "stop":
		switch err := d.controls.Stop(); {
		case err == nil:
			fmt.Fprintln(d.out, "detection stopped")
		case errors.Is(err, supervisor.ErrNotRunning):
			fmt.Fprintln(d.out, "not running")
		default:
			fmt.Fprintln(d.out, "stop failed:", err)
		}

	case "test":
		if d.selfTest == nil {
			fmt.Fprintln(d.out, "self-test unavailable")
			return
		}
		fmt.Fprint(d.out, d.selfTest())

	case "status":
		if d.status == nil {
			fmt.Fprintln(d.out, "status unavailable")
			return
		}
		fmt.Fprintln(d.out, d.status())

	case "help", "?":
		writeHelp(d.out)
	}
}

func writeHelp(w io.Writer) {
	fmt.Fprint(w, `commands:
  start   begin presence detection
  stop    halt detection, close the door
  test    exercise servo, buzzer and camera
  status  show controller state and counters
  help    this text
`)
}
