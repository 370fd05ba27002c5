package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"brigade/internal/models"
)

// OrderIntake subscribes to the order-taking system's stream and turns
// published orders into routed tickets.
type OrderIntake struct {
	subscriber Subscriber
	route      func(ctx context.Context, order models.IncomingOrder) error
}

// NewOrderIntake wires a subscriber to a routing callback.
func NewOrderIntake(subscriber Subscriber, route func(ctx context.Context, order models.IncomingOrder) error) *OrderIntake {
	return &OrderIntake{subscriber: subscriber, route: route}
}

// Start subscribes to OrdersTopic. Malformed payloads are logged and
// dropped; routing errors are returned to the bus layer for visibility.
func (i *OrderIntake) Start(ctx context.Context) error {
	log.Printf("order intake listening on %s", OrdersTopic)
	if err := i.subscriber.Subscribe(ctx, OrdersTopic, i.handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", OrdersTopic, err)
	}
	return nil
}

func (i *OrderIntake) handle(ctx context.Context, msg []byte) error {
	var order models.IncomingOrder
	if err := json.Unmarshal(msg, &order); err != nil {
		log.Printf("order intake: dropping malformed order event: %v", err)
		return nil
	}
	if order.ID == "" || order.HubID == "" {
		log.Printf("order intake: dropping order event without id/hub")
		return nil
	}
	return i.route(ctx, order)
}
