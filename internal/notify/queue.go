package notify

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue is an AMQP connection bound to one durable queue.
type Queue struct {
	conn *amqp.Connection
	chn  *amqp.Channel
	name string
}

// OpenQueue dials the broker and declares the durable queue.
func OpenQueue(url, name string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := chn.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = chn.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return &Queue{conn: conn, chn: chn, name: name}, nil
}

// Close releases the channel and connection.
func (q *Queue) Close() error {
	if err := q.chn.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}

// Send publishes an email job to the queue. It implements access.Notifier;
// publishing is the extent of the flows' delivery responsibility.
func (q *Queue) Send(ctx context.Context, to, subject, body string) error {
	payload, err := EncodeEmail(to, subject, body)
	if err != nil {
		return err
	}
	return q.chn.PublishWithContext(ctx,
		"",     // exchange
		q.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
		},
	)
}

// Deliveries starts consuming the queue with manual acknowledgements.
func (q *Queue) Deliveries() (<-chan amqp.Delivery, error) {
	return q.chn.Consume(q.name, "", false, false, false, false, nil)
}
