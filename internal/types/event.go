package types

import "time"

// EventKind identifies what a tick decided to report
type EventKind string

const (
	// EventChanged reports a new public address
	EventChanged EventKind = "changed"
	// EventStagnant reports an address that has not changed for too long
	EventStagnant EventKind = "stagnant"
)

// Event is a notification decided by the monitor for one tick.
// Elapsed is the time since the previous change; Step is the escalation
// step that triggered a stagnant event (1 for changes).
type Event struct {
	Kind     EventKind
	Address  Address
	Previous Address
	Elapsed  time.Duration
	Step     int
	At       time.Time
}

// IsFirst reports whether a changed event is the first address ever seen
func (e *Event) IsFirst() bool {
	return e.Kind == EventChanged && e.Previous.IsZero()
}
