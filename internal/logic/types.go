// Package logic contains pure business logic for encoder event detection.
// This package has NO external dependencies (no sysfs, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the logical state of the index switch.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// EventType represents something worth publishing.
type EventType string

const (
	EventPosition EventType = "POSITION"
	EventIndexOn  EventType = "INDEX_ON"
	EventIndexOff EventType = "INDEX_OFF"
)

// Event represents a change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Position  int64 // encoder count when the event was detected
	Delta     int64 // change since the previous POSITION event (POSITION only)
	Index     State
}

// SwitchState tracks debounce state for the index switch.
type SwitchState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input represents a single sample.
type Input struct {
	Position int64
	Index    bool // true = switch active (already corrected for polarity)
	Time     time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Position int
	IndexOn  int
	IndexOff int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
