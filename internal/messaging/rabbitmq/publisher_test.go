package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declareErr error
	publishErr error
	declared   []string
	published  []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish context must have a deadline")
	}
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}

	_, err := NewPublisher(ch, "")
	require.NoError(t, err)
	assert.Equal(t, []string{EventsExchange + ":topic"}, ch.declared)
}

func TestNewPublisher_DeclareError(t *testing.T) {
	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, EventsExchange)
	require.Error(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	publisher, err := NewPublisher(ch, EventsExchange)
	require.NoError(t, err)

	err = publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)

	got := ch.published[0]
	assert.Equal(t, EventsExchange, got.exchange)
	assert.Equal(t, OrderPlacedRoutingKey, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "outbox-1", got.msg.MessageId)
	assert.Equal(t, "order-1", got.msg.Headers["aggregate_id"])
	assert.JSONEq(t, `{"order_id":"order-1"}`, string(got.msg.Body))

	require.NoError(t, publisher.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	publisher, err := NewPublisher(&fakeChannel{publishErr: amqp.ErrClosed}, EventsExchange)
	require.NoError(t, err)

	err = publisher.Publish(domain.OutboxMessage{ID: "outbox-2", EventType: domain.EventTypeOrderPlaced})
	require.ErrorIs(t, err, amqp.ErrClosed)
}

func TestPublisher_NotInitialized(t *testing.T) {
	var publisher *Publisher
	require.Error(t, publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}))
}

func TestDial_InvalidURL(t *testing.T) {
	_, _, err := Dial("not-a-valid-url")
	require.Error(t, err)
}
