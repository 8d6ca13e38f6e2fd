package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/eqep-encoder/internal/logic"
)

// backlogLimit is the number of messages held while the broker is unreachable.
const backlogLimit = 100

const publishTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("mqtt: publish timed out")

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Channel  string // encoder channel name, included in event payloads
	Topics   Topics
	Logger   *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed after reconnection.
type RealPublisher struct {
	client  paho.Client
	channel string
	topics  Topics
	logger  *slog.Logger

	mu          sync.Mutex
	pending     *backlog
	connectedAt int // number of successful connections
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is not reachable within 10 seconds the publisher keeps retrying in the
// background and buffers messages meanwhile.
func NewRealPublisher(o Options) *RealPublisher {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clientID := o.ClientID
	if clientID == "" {
		clientID = "eqep-encoder"
	}

	p := &RealPublisher{
		channel: o.Channel,
		topics:  o.Topics,
		logger:  logger.With("component", "mqtt"),
		pending: newBacklog(backlogLimit),
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT", Timestamp: time.Now()})
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(o.Topics.System, string(will), qosSystem, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.logger.Warn("broker not reachable yet, retrying in background", "broker", o.Broker)
	} else if err := token.Error(); err != nil {
		p.logger.Warn("connect to broker", "broker", o.Broker, "error", err)
	}
	return p
}

// onConnect announces a reconnection and replays buffered messages.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connectedAt++
	reconnect := p.connectedAt > 1
	pending, dropped := p.pending.take()
	p.mu.Unlock()

	p.logger.Info("connected", "reconnect", reconnect, "buffered", len(pending), "dropped", dropped)
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(p.topics.System, qosSystem, false, payload)
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Publish sends an encoder event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(p.channel, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if err := p.publish(outbound{topic: p.topics.Events, payload: payload, qos: qosEvents}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if err := p.publish(outbound{topic: p.topics.System, payload: payload, qos: qosSystem, retained: event.Retained}); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// publish sends m, or queues it while the connection is down. The check and
// the enqueue happen under mu so that onConnect cannot drain the backlog in
// between and strand the message until the next reconnect.
func (p *RealPublisher) publish(m outbound) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		evicted := p.pending.add(m)
		n := p.pending.dropped
		p.mu.Unlock()
		if evicted && n == 1 {
			p.logger.Warn("backlog full, evicting oldest", "limit", backlogLimit)
		}
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
