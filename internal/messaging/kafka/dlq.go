package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// ErrReplayPayloadMissing — запись DLQ не содержит исходного события.
var ErrReplayPayloadMissing = errors.New("dlq record does not contain original event payload")

// DLQRecord — payload сообщения, отправленного consumer в DLQ после исчерпания попыток.
type DLQRecord struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	RetryCount        int    `json:"retry_count"`
}

// OutboxDLQRecord — payload конверта, который outbox worker публикует в DLQ.
type OutboxDLQRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

// ReplayMessage строит сообщение для повторной публикации записи из DLQ.
// Записи consumer возвращаются в исходный topic как есть, записи outbox
// заново упаковываются в Envelope и уходят в defaultTopic.
// ok=false означает, что формат записи неизвестен и её следует пропустить.
func ReplayMessage(message *sarama.ConsumerMessage, defaultTopic string, now time.Time) (*sarama.ProducerMessage, bool, error) {
	var record DLQRecord
	if err := json.Unmarshal(message.Value, &record); err == nil && record.OriginalValue != "" {
		topic := strings.TrimSpace(record.OriginalTopic)
		if topic == "" {
			topic = defaultTopic
		}
		return &sarama.ProducerMessage{
			Topic:     topic,
			Key:       sarama.StringEncoder(record.OriginalKey),
			Value:     sarama.StringEncoder(record.OriginalValue),
			Timestamp: now,
		}, true, nil
	}

	var outer Envelope
	if err := json.Unmarshal(message.Value, &outer); err != nil || len(outer.Payload) == 0 {
		return nil, false, nil
	}

	var nested OutboxDLQRecord
	if err := json.Unmarshal(outer.Payload, &nested); err != nil {
		return nil, false, fmt.Errorf("decode outbox dlq record: %w", err)
	}
	if len(nested.Payload) == 0 {
		return nil, false, ErrReplayPayloadMissing
	}

	envelope := Envelope{
		ID:            firstNonEmpty(nested.OutboxID, outer.ID),
		AggregateType: firstNonEmpty(nested.AggregateType, outer.AggregateType),
		AggregateID:   firstNonEmpty(nested.AggregateID, outer.AggregateID),
		EventType:     firstNonEmpty(nested.EventType, outer.EventType),
		Payload:       nested.Payload,
		PublishedAt:   now,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return nil, false, fmt.Errorf("encode replay envelope: %w", err)
	}

	key := firstNonEmpty(envelope.AggregateID, envelope.ID)
	return &sarama.ProducerMessage{
		Topic:     defaultTopic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: now,
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventType), Value: []byte(envelope.EventType)},
			{Key: []byte(HeaderOutboxID), Value: []byte(envelope.ID)},
		},
	}, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
