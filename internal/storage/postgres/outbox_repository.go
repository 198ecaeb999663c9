package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"

	defaultPullLimit = 100
)

const (
	enqueueOutboxSQL = `INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status, attempt_count, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, $6)`
	pendingOutboxSQL = `SELECT id, aggregate_type, aggregate_id, event_type, payload FROM outbox_messages WHERE status = 'pending' ORDER BY created_at, id LIMIT $1`
	outboxStatsSQL   = `SELECT COUNT(*), MIN(created_at) FROM outbox_messages WHERE status = 'pending'`
	markOutboxSQL    = `UPDATE outbox_messages SET status = $2, attempt_count = attempt_count + 1, updated_at = $3 WHERE id = $1`
)

// OutboxPool — методы пула pgx, которые использует outbox.
type OutboxPool interface {
	DBPool
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type outboxRepository struct {
	pool OutboxPool
	now  func() time.Time
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return NewOutboxRepositoryWithPool(store.Pool())
}

// NewOutboxRepositoryWithPool создаёт outbox поверх произвольного пула.
func NewOutboxRepositoryWithPool(pool OutboxPool) domain.OutboxRepository {
	return &outboxRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, enqueueOutboxSQL,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, r.now(),
	); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message: %w", err)
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultPullLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, pendingOutboxSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}
	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OutboxMessage, error) {
		var msg domain.OutboxMessage
		err := row.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload)
		return msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox messages: %w", err)
	}
	return messages, nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest *time.Time
	)
	if err := r.pool.QueryRow(ctx, outboxStatsSQL).Scan(&stats.PendingCount, &oldest); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats: %w", err)
	}
	if oldest != nil {
		stats.OldestPendingAt = oldest.UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(id string) error {
	return r.mark(id, outboxStatusSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.mark(id, outboxStatusFailed)
}

func (r *outboxRepository) mark(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, markOutboxSQL, id, status, r.now())
	if err != nil {
		return fmt.Errorf("mark outbox message %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
