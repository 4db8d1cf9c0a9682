package queue

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/backend-electronic/internal/events"
)

// OrderNotifier turns order.placed events into confirmation e-mail tasks.
type OrderNotifier struct {
	Tasks Enqueuer
}

// Notify implements events.Notifier.
func (n OrderNotifier) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicOrderPlaced || n.Tasks == nil {
		return nil
	}
	var p OrderConfirmation
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return err
	}
	if p.OrderID == "" {
		p.OrderID = ev.AggregateID
	}
	task, err := NewOrderConfirmationTask(p)
	if err != nil {
		return err
	}
	return n.Tasks.Enqueue(ctx, task)
}
