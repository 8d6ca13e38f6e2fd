package mqtt

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/eqep-encoder/internal/logic"
)

// stubToken completes immediately unless timedOut is set.
type stubToken struct {
	timedOut bool
	err      error
}

func (t stubToken) Wait() bool                     { return !t.timedOut }
func (t stubToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t stubToken) Error() error                   { return t.err }
func (t stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timedOut {
		close(ch)
	}
	return ch
}

// stubClient implements the parts of paho.Client the publisher uses.
type stubClient struct {
	paho.Client

	mu        sync.Mutex
	open      bool
	onCheck   func()
	token     stubToken
	published []string
}

func (c *stubClient) IsConnectionOpen() bool {
	c.mu.Lock()
	open, hook := c.open, c.onCheck
	c.onCheck = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return open
}

func (c *stubClient) Publish(topic string, _ byte, _ bool, _ interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, topic)
	return c.token
}

func (c *stubClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *stubClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.published...)
}

func newTestPublisher(c *stubClient) *RealPublisher {
	return &RealPublisher{
		client:  c,
		channel: "eQEP1",
		topics:  NewTopics("", "eQEP1"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending: newBacklog(backlogLimit),
	}
}

func TestRealPublishWhileConnected(t *testing.T) {
	c := &stubClient{open: true}
	p := newTestPublisher(c)

	if err := p.Publish(logic.Event{Type: logic.EventPosition, Position: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.topics(); len(got) != 1 || got[0] != "encoder/eqep/eqep1/events" {
		t.Errorf("published: got %v", got)
	}
}

func TestRealPublishBuffersWhileDisconnected(t *testing.T) {
	c := &stubClient{}
	p := newTestPublisher(c)

	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.topics(); len(got) != 0 {
		t.Fatalf("expected nothing sent while down, got %v", got)
	}

	c.setOpen(true)
	p.onConnect(c)
	if got := c.topics(); len(got) != 1 || got[0] != "encoder/eqep/eqep1/system" {
		t.Errorf("replayed: got %v", got)
	}
	if p.pending.len() != 0 {
		t.Errorf("backlog not drained: %d left", p.pending.len())
	}
}

// TestRealPublishReconnectDuringEnqueue reconnects between the connection
// check and the enqueue. The reconnect handler must still replay the message.
func TestRealPublishReconnectDuringEnqueue(t *testing.T) {
	c := &stubClient{}
	p := newTestPublisher(c)

	done := make(chan struct{})
	c.onCheck = func() {
		go func() {
			defer close(done)
			c.setOpen(true)
			p.onConnect(c)
		}()
	}

	if err := p.Publish(logic.Event{Type: logic.EventPosition, Position: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect handler did not finish")
	}

	if got := c.topics(); len(got) != 1 || got[0] != "encoder/eqep/eqep1/events" {
		t.Errorf("published: got %v", got)
	}
	if n := p.pending.len(); n != 0 {
		t.Errorf("message stranded in backlog: %d left", n)
	}
}

func TestRealPublishTimeout(t *testing.T) {
	c := &stubClient{open: true, token: stubToken{timedOut: true}}
	p := newTestPublisher(c)

	err := p.Publish(logic.Event{Type: logic.EventPosition})
	if !errors.Is(err, ErrPublishTimeout) {
		t.Errorf("expected ErrPublishTimeout, got %v", err)
	}
}

func TestRealPublishTokenError(t *testing.T) {
	brokerErr := errors.New("not authorized")
	c := &stubClient{open: true, token: stubToken{err: brokerErr}}
	p := newTestPublisher(c)

	err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT", Timestamp: time.Now()})
	if !errors.Is(err, brokerErr) {
		t.Errorf("expected broker error, got %v", err)
	}
}
