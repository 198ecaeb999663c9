package domain

import (
	"context"
	"time"
)

// Catalog — внешний источник товаров, доступный только на чтение.
type Catalog interface {
	// GetProductByID возвращает товар и false, если его нет.
	GetProductByID(id string) (Product, bool)
	// GetProductsByCategory возвращает товары категории в порядке каталога.
	GetProductsByCategory(category string) []Product
	// GetAllCategories возвращает уникальные категории в порядке первого появления.
	GetAllCategories() []string
}

// CartStorage — локальное хранилище состояния корзины по ключу сессии.
type CartStorage interface {
	// Load возвращает сохранённое состояние или ErrCartStateNotFound.
	Load(key string) ([]byte, error)
	// Save перезаписывает состояние по ключу.
	Save(key string, payload []byte) error
	// Delete удаляет состояние; отсутствие ключа не ошибка.
	Delete(key string) error
	// DeleteExpired удаляет до limit записей, не обновлявшихся с before.
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderAlreadyExists, если ID занят.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
}

// PaymentService описывает взаимодействие с платёжным провайдером.
type PaymentService interface {
	// Authorize инициирует авторизацию суммы по заказу.
	Authorize(ctx context.Context, orderID string, amountMinor int64, currency string, method PaymentMethod) (PaymentStatus, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// Mailer отправляет покупателю письмо-подтверждение заказа.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, confirmation OrderConfirmation) error
}

// OrderConfirmation — данные для письма-подтверждения.
type OrderConfirmation struct {
	OrderID    string
	Email      string
	FirstName  string
	TotalMinor int64
	Currency   string
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
