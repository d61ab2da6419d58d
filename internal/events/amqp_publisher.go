package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/kafka"
)

// AMQPPublisher publishes CloudEvents to RabbitMQ. Each topic maps to a
// durable queue of the same name on the default exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	logger   *zap.Logger
}

// NewAMQPPublisher dials url and opens a channel.
func NewAMQPPublisher(url string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
		logger:   logger,
	}, nil
}

// PublishEvent sends event to the queue named topic as a persistent message.
func (p *AMQPPublisher) PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		// Durable so messages survive broker restarts.
		if _, err := p.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
		}
		p.declared[topic] = true
	}

	err = p.ch.PublishWithContext(ctx, "", topic, false, false, amqp.Publishing{
		ContentType:  "application/cloudevents+json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.Time,
		AppId:        event.Source,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish to %s failed: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("queue", topic),
		zap.String("event_type", event.Type),
		zap.String("event_id", event.ID),
	)
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq: connection closed")
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}
