// Package amqp publishes registry events to a topic exchange with the event
// type as routing key.
package amqp

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"travelcred/internal/notifier"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Sink publishes persistent JSON messages. amqp091 channels are not safe
// for concurrent publishing, so Deliver serializes on mu.
type Sink struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string) (*Sink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Sink{conn: conn, ch: ch, exchange: exchange}, nil
}

func (s *Sink) Name() string { return "amqp" }

// Message builds the publishing for e.
func Message(e notifier.Event) (amqp.Publishing, error) {
	body, err := notifier.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.EventID.String(),
		Timestamp:    e.Timestamp,
		Type:         string(e.Type),
		Headers:      amqp.Table{"seq": int64(e.Seq), "key": e.Key()},
		Body:         body,
	}, nil
}

func (s *Sink) Deliver(ctx context.Context, e notifier.Event) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.PublishWithContext(ctx, s.exchange, string(e.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish event %d: %w", e.Seq, err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
