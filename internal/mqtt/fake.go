package mqtt

import (
	"github.com/sweeney/eqep-encoder/internal/logic"
)

// Message is one publish as it would reach the broker.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// FakePublisher records what a RealPublisher would send, without a broker.
type FakePublisher struct {
	// Channel is included in encoder payloads.
	Channel string

	// Topics routes recorded messages.
	Topics Topics

	// Events and SystemEvents are the values passed in, in order.
	Events       []logic.Event
	SystemEvents []SystemEvent

	// Messages holds every publish across both topics, in order.
	Messages []Message

	// PublishError and PublishSystemError fail the matching call and
	// suppress recording.
	PublishError       error
	PublishSystemError error

	// Closed is set by Close.
	Closed bool

	// Connected is returned by IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for eQEP0 with default topics.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{
		Channel: "eQEP0",
		Topics:  NewTopics("", "eQEP0"),
	}
}

// Publish records the encoder event on the events topic.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(f.Channel, event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: f.Topics.Events, Payload: payload, QoS: qosEvents})
	return nil
}

// PublishSystem records the system event on the system topic.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: f.Topics.System, Payload: payload, QoS: qosSystem, Retained: event.Retained})
	return nil
}

// Payloads returns the payloads recorded on topic, in order.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected returns Connected.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears everything recorded and any injected failure.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{Channel: f.Channel, Topics: f.Topics}
}
