// Package events distributes controller events to operator-facing
// subscribers with non-blocking delivery: a slow subscriber drops events
// rather than stalling the control loop.
package events

import "time"

// Type identifies what happened.
type Type string

const (
	TypeStarted     Type = "started"
	TypeStopped     Type = "stopped"
	TypePresence    Type = "presence"
	TypeAbsence     Type = "absence"
	TypeAlarm       Type = "alarm"
	TypeDoorOpened  Type = "door_opened"
	TypeDoorClosed  Type = "door_closed"
	TypeFrameMissed Type = "frame_missed"
	TypeInitFailed  Type = "init_failed"
)

// Event is one controller occurrence, stamped with the loop's clock.
type Event struct {
	Type    Type
	At      time.Time
	Message string
}
