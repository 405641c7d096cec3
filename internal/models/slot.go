package models

import "time"

// Slot is a bookable calendar day found during a scan.
type Slot struct {
	Day   string // day number as shown on the button, e.g. "3"
	Month string // month/year header, e.g. "June 2025"
}

// Label returns the slot as "<day> <month-year>".
func (s Slot) Label() string {
	return s.Day + " " + s.Month
}

// CycleState is the lifecycle state of the polling worker.
type CycleState int

// Worker lifecycle states.
const (
	StateIdle CycleState = iota
	StateRunning
	StateStoppingRequested
	StateStopped
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStoppingRequested:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StatusEntry is one line of the user-visible status log.
type StatusEntry struct {
	Time    time.Time
	Message string
}
