// Package status provides a thread-safe status tracker for the encoder daemon.
// It is read by HTTP handlers and by system events published to MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/eqep-encoder/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Channel     string
	DevicePath  string
	PollMs      int64
	DebounceMs  int64
	Deadband    int64
	HeartbeatMs int64
	Broker      string
	Topic       string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Hardware is the last reading of the eQEP attributes.
type Hardware struct {
	Enabled   bool
	Mode      string // "absolute" or "relative"
	Position  int64
	Frequency float64
	Error     string // last read error, empty when the read succeeded
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Hardware      Hardware
	Index         logic.State
	Baselined     bool
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets detector state. Called from the run loop on every tick.
func (t *Tracker) Update(index logic.State, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Index = index
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetHardware records the latest attribute reading.
func (t *Tracker) SetHardware(hw Hardware) {
	t.mu.Lock()
	t.snap.Hardware = hw
	t.mu.Unlock()
}

// SetHardwareError keeps the previous reading and records err.
func (t *Tracker) SetHardwareError(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.Hardware.Error = err.Error()
	} else {
		t.snap.Hardware.Error = ""
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
