package events

import (
	"context"
	"errors"
	"testing"

	"brigade/internal/models"
)

func TestFanout(t *testing.T) {
	fanout := NewFanout()

	var got []string
	fanout.Listen(func(topic string, msg []byte) {
		got = append(got, topic+":"+string(msg))
	})
	fanout.Listen(func(topic string, msg []byte) {
		got = append(got, "second:"+topic)
	})

	if err := fanout.Publish(context.Background(), TicketsTopic, []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	want := []string{TicketsTopic + ":hello", "second:" + TicketsTopic}
	if len(got) != len(want) {
		t.Fatalf("deliveries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type stubPublisher struct {
	topics []string
	err    error
}

func (p *stubPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	p.topics = append(p.topics, topic)
	return p.err
}

func TestMulti_AttemptsAllAndReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	first := &stubPublisher{err: boom}
	second := &stubPublisher{}

	err := Multi{first, second}.Publish(context.Background(), TicketsTopic, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if len(second.topics) != 1 {
		t.Error("second publisher skipped after first failed")
	}
}

type stubSubscriber struct {
	topic   string
	handler HandlerFunc
}

func (s *stubSubscriber) Subscribe(ctx context.Context, topic string, handler HandlerFunc) error {
	s.topic = topic
	s.handler = handler
	return nil
}

func TestOrderIntake(t *testing.T) {
	ctx := context.Background()
	sub := &stubSubscriber{}

	var routed []models.IncomingOrder
	intake := NewOrderIntake(sub, func(ctx context.Context, order models.IncomingOrder) error {
		routed = append(routed, order)
		return nil
	})
	if err := intake.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sub.topic != OrdersTopic {
		t.Fatalf("subscribed to %q, want %q", sub.topic, OrdersTopic)
	}

	good := []byte(`{"id":"order-1","hub_id":"hub-1","priority":2,"items":[{"item_id":"i-1","station":"hot"}]}`)
	if err := sub.handler(ctx, good); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(routed) != 1 {
		t.Fatalf("routed orders = %d, want 1", len(routed))
	}
	if routed[0].ID != "order-1" || routed[0].HubID != "hub-1" || routed[0].Priority != 2 {
		t.Errorf("routed order = %+v", routed[0])
	}
	if len(routed[0].Items) != 1 || routed[0].Items[0].Station != "hot" {
		t.Errorf("routed items = %+v", routed[0].Items)
	}

	// Malformed and incomplete payloads are dropped, not errored.
	for _, payload := range []string{"not json", `{"id":"order-2"}`, `{"hub_id":"hub-1"}`} {
		if err := sub.handler(ctx, []byte(payload)); err != nil {
			t.Errorf("handler(%q) returned error: %v", payload, err)
		}
	}
	if len(routed) != 1 {
		t.Errorf("bad payloads reached routing: %d orders", len(routed))
	}
}
