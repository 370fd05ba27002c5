package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"brigade/internal/models"
)

// TicketsTopic carries one event per successful ticket transition.
const TicketsTopic = "kitchen.tickets"

// OrdersTopic is where the order-taking system publishes new orders.
const OrdersTopic = "orders.created"

// TicketEvent is the payload published on TicketsTopic.
type TicketEvent struct {
	EventType     string             `json:"event_type"`
	OccurredAt    time.Time          `json:"occurred_at"`
	HubID         string             `json:"hub_id"`
	TicketID      string             `json:"ticket_id"`
	OrderID       string             `json:"order_id"`
	OrderItemID   string             `json:"order_item_id,omitempty"`
	Station       string             `json:"station"`
	Action        models.Action      `json:"action"`
	Actor         string             `json:"actor"`
	PreviousState models.TicketState `json:"previous_state,omitempty"`
	NewState      models.TicketState `json:"new_state"`
	Priority      int                `json:"priority"`
}

// Publisher publishes raw event payloads on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

// HandlerFunc processes one received message.
type HandlerFunc func(ctx context.Context, msg []byte) error

// Subscriber delivers messages from a topic to a handler.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler HandlerFunc) error
}

// NATSPublisher publishes events over a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to NATS at the given URL.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber consumes messages over a NATS connection.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to NATS at the given URL.
func NewNATSSubscriber(url string) (*NATSSubscriber, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler HandlerFunc) error {
	_, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			log.Printf("events: handler for %s failed: %v", topic, err)
		}
	})
	return err
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// Fanout is an in-process publisher that forwards every published message to
// registered listeners. The websocket display feed hangs off it.
type Fanout struct {
	mu        sync.RWMutex
	listeners []func(topic string, msg []byte)
}

func NewFanout() *Fanout {
	return &Fanout{}
}

// Listen registers a listener for every published message.
func (f *Fanout) Listen(fn func(topic string, msg []byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *Fanout) Publish(ctx context.Context, topic string, msg []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fn := range f.listeners {
		fn(topic, msg)
	}
	return nil
}

// Multi fans a publish out to several publishers. The first error is
// returned after all publishers have been attempted.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, msg []byte) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, topic, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
