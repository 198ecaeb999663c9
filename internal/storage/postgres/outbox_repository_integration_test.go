package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func orderPlacedMessage(t *testing.T, orderID string) domain.OutboxMessage {
	t.Helper()

	payload, err := json.Marshal(domain.NewOrderPlacedEvent(domain.Order{
		ID:         orderID,
		Status:     domain.OrderStatusConfirmed,
		TotalMinor: 6594,
		Currency:   domain.Currency,
		CreatedAt:  time.Now().UTC(),
	}))
	require.NoError(t, err)

	return domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       payload,
	}
}

func TestOutboxRepository_PostgresPublishCycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	generated, err := repo.Enqueue(orderPlacedMessage(t, "order-1"))
	require.NoError(t, err)
	require.NotEmpty(t, generated.ID)

	fixed := orderPlacedMessage(t, "order-2")
	fixed.ID = "outbox-fixed-id"
	stored, err := repo.Enqueue(fixed)
	require.NoError(t, err)
	assert.Equal(t, "outbox-fixed-id", stored.ID)

	pending, err := repo.PullPending(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "order-1", pending[0].AggregateID)
	assert.JSONEq(t, string(fixed.Payload), string(pending[1].Payload))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(generated.ID))
	require.NoError(t, repo.MarkFailed(stored.ID))

	pending, err = repo.PullPending(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stats, err = repo.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_PostgresMarkMissing(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	require.ErrorIs(t, repo.MarkSent("missing-outbox"), domain.ErrOutboxPublish)
	require.ErrorIs(t, repo.MarkFailed("missing-outbox"), domain.ErrOutboxPublish)
}
