// Package rabbitmq публикует outbox-события в topic exchange RabbitMQ.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// EventsExchange — topic exchange для событий витрины.
	EventsExchange = "storefront.events"
	// OrderPlacedRoutingKey — routing key события order.placed.
	OrderPlacedRoutingKey = "order.placed.v1"

	publishTimeout = 3 * time.Second
)

// Channel — подмножество *amqp.Channel, нужное публикатору.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RoutingKey возвращает routing key версии v1 для типа события.
func RoutingKey(eventType string) string {
	return eventType + ".v1"
}

// Publisher публикует outbox-сообщения в EventsExchange.
type Publisher struct {
	ch       Channel
	exchange string
	logger   *log.Entry
}

// Dial открывает соединение и канал, объявляет exchange.
func Dial(url string) (*Publisher, *amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	publisher, err := NewPublisher(ch, EventsExchange)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return publisher, conn, nil
}

// NewPublisher объявляет durable topic exchange и возвращает публикатор.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = EventsExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   log.WithField("component", "rabbitmq-publisher"),
	}, nil
}

// Publish отправляет payload outbox-сообщения как persistent JSON.
func (p *Publisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.ch == nil {
		return fmt.Errorf("rabbitmq publisher is not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	routingKey := RoutingKey(event.EventType)
	err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.EventType,
		Timestamp:    time.Now().UTC(),
		Headers: amqp.Table{
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
		},
		Body: event.Payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.WithFields(log.Fields{
		"exchange":    p.exchange,
		"routing_key": routingKey,
		"outbox_id":   event.ID,
	}).Debug("message published to rabbitmq")
	return nil
}

// Close закрывает канал.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

var _ domain.OutboxPublisher = (*Publisher)(nil)
