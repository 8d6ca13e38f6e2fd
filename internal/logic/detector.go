package logic

import "time"

// Detector tracks encoder position and index switch state and detects changes.
type Detector struct {
	debounceDuration time.Duration
	deadband         int64
	index            SwitchState
	baselined        bool
	reported         int64 // position at the last POSITION event or baseline
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a detector. The index switch must hold steady for
// debounceDuration before it counts; a position change is only reported once
// it reaches deadband counts (0 reports every change).
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, deadband int64, startTime time.Time) *Detector {
	if deadband < 0 {
		deadband = 0
	}
	return &Detector{
		debounceDuration: debounceDuration,
		deadband:         deadband,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new input sample and returns any events that should be emitted.
// Events are only returned after baseline is established.
func (d *Detector) Process(input Input) []Event {
	indexTransition := d.processSwitch(&d.index, boolToState(input.Index), input.Time)

	if !d.baselined {
		// Track position silently so the first event is relative to the baseline.
		d.reported = input.Position
		if d.index.Baselined {
			d.baselined = true
		}
		return nil
	}

	var events []Event

	// Index first: the caller may zero the encoder in response.
	if indexTransition != nil {
		events = append(events, Event{
			Timestamp: input.Time,
			Type:      *indexTransition,
			Position:  input.Position,
			Index:     d.index.Stable,
		})
	}

	if delta := input.Position - d.reported; delta != 0 && abs(delta) >= d.deadband {
		events = append(events, Event{
			Timestamp: input.Time,
			Type:      EventPosition,
			Position:  input.Position,
			Delta:     delta,
			Index:     d.index.Stable,
		})
		d.reported = input.Position
	}

	for _, e := range events {
		switch e.Type {
		case EventPosition:
			d.eventCounts.Position++
		case EventIndexOn:
			d.eventCounts.IndexOn++
		case EventIndexOff:
			d.eventCounts.IndexOff++
		}
	}

	return events
}

// processSwitch handles debounce logic for the index switch.
// Returns the event type if a transition occurred, nil otherwise.
func (d *Detector) processSwitch(sw *SwitchState, newState State, now time.Time) *EventType {
	// First time seeing this switch
	if !sw.Baselined {
		if sw.Pending == "" || sw.Pending != newState {
			// Start observing, or restart after a change during baseline
			sw.Pending = newState
			sw.PendingSince = now
			if d.debounceDuration > 0 {
				return nil
			}
		}

		if now.Sub(sw.PendingSince) >= d.debounceDuration {
			sw.Stable = newState
			sw.Baselined = true
			sw.Pending = ""
		}
		return nil
	}

	if newState == sw.Stable {
		sw.Pending = ""
		return nil
	}

	if sw.Pending != newState {
		sw.Pending = newState
		sw.PendingSince = now
		if d.debounceDuration > 0 {
			return nil
		}
	}

	if now.Sub(sw.PendingSince) >= d.debounceDuration {
		sw.Stable = newState
		sw.Pending = ""
		return eventTypeForTransition(newState)
	}

	return nil
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

func eventTypeForTransition(to State) *EventType {
	event := EventIndexOff
	if to == StateOn {
		event = EventIndexOn
	}
	return &event
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the stable index state and the last reported position.
func (d *Detector) CurrentState() (index State, position int64) {
	return d.index.Stable, d.reported
}

// ResetPosition moves the POSITION reference to position. Call it after
// rewriting the hardware count so the write is not reported as movement.
func (d *Detector) ResetPosition(position int64) {
	d.reported = position
}

// EventCountsSnapshot returns a copy of the current event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
