package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Channel       string       `json:"channel"`
	Encoder       EncoderJSON  `json:"encoder"`
	Index         string       `json:"index"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// EncoderJSON is the JSON representation of the hardware reading.
type EncoderJSON struct {
	Enabled     bool    `json:"enabled"`
	Mode        string  `json:"mode"`
	Position    int64   `json:"position"`
	FrequencyHz float64 `json:"frequency_hz"`
	Error       string  `json:"error,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Position int `json:"position"`
	IndexOn  int `json:"index_on"`
	IndexOff int `json:"index_off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DevicePath  string `json:"device_path"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	Deadband    int64  `json:"deadband"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	HTTPPort    string `json:"http_port"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	index := string(snap.Index)
	if index == "" {
		index = "UNKNOWN"
	}
	mode := snap.Hardware.Mode
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		Channel: snap.Config.Channel,
		Encoder: EncoderJSON{
			Enabled:     snap.Hardware.Enabled,
			Mode:        mode,
			Position:    snap.Hardware.Position,
			FrequencyHz: snap.Hardware.Frequency,
			Error:       snap.Hardware.Error,
		},
		Index:         index,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Topic: snap.Config.Topic},
		Counts: CountsJSON{
			Position: snap.Counts.Position,
			IndexOn:  snap.Counts.IndexOn,
			IndexOff: snap.Counts.IndexOff,
		},
		Config: ConfigJSON{
			DevicePath:  snap.Config.DevicePath,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			Deadband:    snap.Config.Deadband,
			HeartbeatMs: snap.Config.HeartbeatMs,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
