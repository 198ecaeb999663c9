package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Kafka headers
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderEventType     = "x-event-type"
	HeaderOutboxID      = "x-outbox-id"
)

// ErrMalformedEnvelope — сообщение не является конвертом outbox.
var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// Envelope — формат outbox-сообщения в topic.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// ParseEnvelope разбирает конверт outbox из сообщения.
func ParseEnvelope(message *sarama.ConsumerMessage) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if envelope.EventType == "" {
		return Envelope{}, fmt.Errorf("%w: event_type is empty", ErrMalformedEnvelope)
	}
	return envelope, nil
}

// EventHandler обрабатывает payload события заданного типа.
type EventHandler func(ctx context.Context, eventType string, payload []byte) error

// EnvelopeHandler распаковывает конверт и передаёт payload в handler.
func EnvelopeHandler(handler EventHandler) MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		envelope, err := ParseEnvelope(message)
		if err != nil {
			return err
		}
		return handler(ctx, envelope.EventType, envelope.Payload)
	}
}

func headerValue(headers []*sarama.RecordHeader, key string) (string, bool) {
	for _, header := range headers {
		if header != nil && string(header.Key) == key {
			return string(header.Value), true
		}
	}
	return "", false
}
