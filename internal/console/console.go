// Package console is the operator's serial-style command surface: a
// readline prompt feeding one-word commands into the control loop, and a
// printer for controller events.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/e7canasta/orion-gatekeeper/internal/events"
)

// commandBacklog bounds queued commands between loop wake-ups. An operator
// typing faster than the loop drains is told so rather than silently eaten.
const commandBacklog = 16

// Console owns the interactive prompt.
type Console struct {
	rl       *readline.Instance
	commands chan string
}

// New creates a console on the process terminal.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gate> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("console: create readline: %w", err)
	}
	return &Console{
		rl:       rl,
		commands: make(chan string, commandBacklog),
	}, nil
}

// Commands returns the queue the control loop drains.
func (c *Console) Commands() <-chan string {
	return c.commands
}

// Stdout returns a writer that coordinates with the prompt. Use it for all
// operator-visible output so lines don't tear through the input.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads lines until EOF or ctx cancellation. EOF cancels the whole
// process via cancel; an interrupt only clears the current line.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer close(c.commands)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "exiting")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		select {
		case c.commands <- input:
		default:
			fmt.Fprintln(c.rl.Stdout(), "command queue full, dropped:", input)
		}
	}
}

// WatchEvents prints controller events above the prompt until ch closes or
// ctx is cancelled.
func (c *Console) WatchEvents(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			PrintEvent(c.rl.Stdout(), ev)
		}
	}
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// PrintEvent renders one controller event as an operator-readable line.
func PrintEvent(w io.Writer, ev events.Event) {
	stamp := ev.At.Format("15:04:05.000")
	if ev.Message != "" {
		fmt.Fprintf(w, "[%s] %s: %s\n", stamp, ev.Type, ev.Message)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", stamp, ev.Type)
}
