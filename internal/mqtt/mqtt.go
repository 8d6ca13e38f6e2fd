// Package mqtt publishes encoder events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/eqep-encoder/internal/logic"
)

// DefaultTopicPrefix is prepended to the channel name in every topic.
const DefaultTopicPrefix = "encoder/eqep"

// Position updates are fire-and-forget; lifecycle events must arrive.
const (
	qosEvents byte = 0
	qosSystem byte = 1
)

// Topics are the MQTT topics of one encoder channel.
type Topics struct {
	Events string
	System string
}

// NewTopics builds "<prefix>/<channel>/events" and "<prefix>/<channel>/system".
// The channel name is lower-cased, e.g. "encoder/eqep/eqep2b/events".
func NewTopics(prefix, channel string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	base := strings.TrimSuffix(prefix, "/") + "/" + strings.ToLower(channel)
	return Topics{
		Events: base + "/events",
		System: base + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an encoder event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Encoder EncoderPayload `json:"encoder"`
}

// EncoderPayload contains the encoder event details.
type EncoderPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Channel   string `json:"channel"`
	Position  int64  `json:"position"`
	Delta     int64  `json:"delta,omitempty"`
	Index     string `json:"index"`
}

// FormatPayload creates the JSON payload for an encoder event.
func FormatPayload(channel string, event logic.Event) ([]byte, error) {
	index := string(event.Index)
	if index == "" {
		index = "UNKNOWN"
	}
	payload := Payload{
		Encoder: EncoderPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			Channel:   channel,
			Position:  event.Position,
			Delta:     event.Delta,
			Index:     index,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
