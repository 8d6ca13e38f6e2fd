package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/eqep-encoder/internal/logic"
)

func TestNewTopics(t *testing.T) {
	tests := []struct {
		prefix, channel string
		wantEvents      string
		wantSystem      string
	}{
		{"", "eQEP2b", "encoder/eqep/eqep2b/events", "encoder/eqep/eqep2b/system"},
		{"lab/spindle/", "eQEP0", "lab/spindle/eqep0/events", "lab/spindle/eqep0/system"},
	}
	for _, tt := range tests {
		got := NewTopics(tt.prefix, tt.channel)
		if got.Events != tt.wantEvents {
			t.Errorf("events: got %s, want %s", got.Events, tt.wantEvents)
		}
		if got.System != tt.wantSystem {
			t.Errorf("system: got %s, want %s", got.System, tt.wantSystem)
		}
	}
}

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventPosition,
		Position:  1200,
		Delta:     -40,
		Index:     logic.StateOff,
	}

	payload, err := FormatPayload("eQEP1", event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"encoder":{"timestamp":"2026-02-02T22:18:12Z","event":"POSITION","channel":"eQEP1","position":1200,"delta":-40,"index":"OFF"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadIndexEvent(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 500000000, time.UTC),
		Type:      logic.EventIndexOn,
		Position:  77,
		Index:     logic.StateOn,
	}

	payload, err := FormatPayload("eQEP2", event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Encoder.Event != "INDEX_ON" {
		t.Errorf("unexpected event: %s", parsed.Encoder.Event)
	}
	if parsed.Encoder.Timestamp != "2026-02-02T22:18:12.5Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Encoder.Timestamp)
	}
	if parsed.Encoder.Delta != 0 {
		t.Errorf("expected no delta, got %d", parsed.Encoder.Delta)
	}

	var raw map[string]map[string]any
	json.Unmarshal(payload, &raw)
	if _, ok := raw["encoder"]["delta"]; ok {
		t.Error("delta should be omitted for index events")
	}
}

func TestFormatPayloadUnknownIndex(t *testing.T) {
	payload, _ := FormatPayload("eQEP0", logic.Event{Type: logic.EventPosition, Timestamp: time.Now()})

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Encoder.Index != "UNKNOWN" {
		t.Errorf("expected UNKNOWN index, got %s", parsed.Encoder.Index)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 23, 0, 0, 0, loc),
		Type:      logic.EventPosition,
	}

	payload, _ := FormatPayload("eQEP0", event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Encoder.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Encoder.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadReconnectedOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, _ := FormatSystemPayload(event)
	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload to pass through, got %s", payload)
	}
}

func TestFakePublisherRoutesTopics(t *testing.T) {
	f := NewFakePublisher()
	f.Channel = "eQEP2"
	f.Topics = NewTopics("", "eQEP2")

	if err := f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventPosition, Position: 5, Delta: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(f.Messages))
	}
	ev, sys := f.Messages[0], f.Messages[1]
	if ev.Topic != "encoder/eqep/eqep2/events" || ev.QoS != 0 || ev.Retained {
		t.Errorf("event message: %+v", ev)
	}
	if sys.Topic != "encoder/eqep/eqep2/system" || sys.QoS != 1 || !sys.Retained {
		t.Errorf("system message: %+v", sys)
	}

	events := f.Payloads(f.Topics.Events)
	if len(events) != 1 {
		t.Fatalf("expected 1 event payload, got %d", len(events))
	}
	var parsed Payload
	json.Unmarshal(events[0], &parsed)
	if parsed.Encoder.Channel != "eQEP2" {
		t.Errorf("unexpected channel in payload: %s", parsed.Encoder.Channel)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(logic.Event{Type: logic.EventPosition}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("expected no events recorded on error, got %d", len(f.Events))
	}

	f.PublishSystemError = errors.New("simulated system error")
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Messages) != 0 {
		t.Errorf("expected nothing recorded on error, got %d", len(f.Messages))
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Channel = "eQEP1"
	f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventIndexOn})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	f.Close()
	f.Connected = true
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || len(f.Messages) != 0 {
		t.Error("recordings should be cleared")
	}
	if f.Closed || f.Connected || f.PublishError != nil {
		t.Error("flags should be reset")
	}
	if f.Channel != "eQEP1" {
		t.Errorf("channel should survive reset, got %s", f.Channel)
	}
	if err := f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventPosition}); err != nil {
		t.Errorf("publisher should be reusable after reset: %v", err)
	}
}
