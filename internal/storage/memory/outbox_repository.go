package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultOutboxPullLimit = 100

type outboxState uint8

const (
	outboxPending outboxState = iota
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	msg        domain.OutboxMessage
	state      outboxState
	attempts   int
	enqueuedAt time.Time
}

// OutboxRepository — in-memory outbox: журнал в порядке постановки и индекс по ID.
type OutboxRepository struct {
	mu    sync.RWMutex
	log   []*outboxEntry
	byID  map[string]*outboxEntry
	clock func() time.Time
}

// NewOutboxRepository создаёт пустой outbox.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		byID:  map[string]*outboxEntry{},
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue добавляет сообщение в журнал; пустой ID заменяется на UUID.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byID[msg.ID]; dup {
		return domain.OutboxMessage{}, fmt.Errorf("outbox message %s already enqueued", msg.ID)
	}
	entry := &outboxEntry{msg: msg, enqueuedAt: r.clock()}
	r.log = append(r.log, entry)
	r.byID[msg.ID] = entry
	return msg, nil
}

// PullPending возвращает до limit неотправленных сообщений, старые первыми.
func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.OutboxMessage
	for _, entry := range r.log {
		if len(out) == limit {
			break
		}
		if entry.state == outboxPending {
			out = append(out, entry.msg)
		}
	}
	return out, nil
}

// Stats считает backlog и время постановки самого старого pending-сообщения.
func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, entry := range r.log {
		if entry.state != outboxPending {
			continue
		}
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = entry.enqueuedAt
		}
		stats.PendingCount++
	}
	return stats, nil
}

// MarkSent убирает сообщение из backlog после публикации.
func (r *OutboxRepository) MarkSent(id string) error {
	return r.settle(id, outboxSent)
}

// MarkFailed убирает сообщение из backlog после исчерпания попыток.
func (r *OutboxRepository) MarkFailed(id string) error {
	return r.settle(id, outboxFailed)
}

func (r *OutboxRepository) settle(id string, state outboxState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: unknown outbox message %s", domain.ErrOutboxPublish, id)
	}
	entry.state = state
	entry.attempts++
	return nil
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
