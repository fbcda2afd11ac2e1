package notify

import (
	"context"
	"fmt"

	"accessflow.dev/internal/obs"
)

// Sender delivers a single email. *Mailer is the production implementation.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Consumer drains email jobs from a queue and hands them to a Sender.
type Consumer struct {
	queue  *Queue
	sender Sender
}

// NewConsumer binds a queue to a sender.
func NewConsumer(queue *Queue, sender Sender) *Consumer {
	return &Consumer{queue: queue, sender: sender}
}

// Run consumes until ctx is cancelled or the delivery channel closes.
// Failed deliveries are nacked without requeue so a poisoned message
// cannot wedge the queue.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.queue.Deliveries()
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := c.handle(ctx, d.Body); err != nil {
				obs.LogEntry(map[string]any{
					"type":  "notify",
					"event": "delivery_failed",
					"error": err.Error(),
				})
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	msg, err := DecodeMessage(body)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if msg.Type != MessageTypeEmail {
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	return c.sender.Send(ctx, msg.To, msg.Subject, msg.Text)
}
