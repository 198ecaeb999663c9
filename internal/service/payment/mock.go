// Package payment содержит имитацию платёжного провайдера.
package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultDelay — задержка авторизации по умолчанию, как у витрины.
const DefaultDelay = 2 * time.Second

// MockService — конфигурируемая заглушка PaymentService.
// Ждёт Delay (или отмены ctx) и возвращает настроенный результат.
type MockService struct {
	mu sync.Mutex

	Delay  time.Duration
	Status domain.PaymentStatus
	Err    error

	calls  int
	logger *log.Entry
}

// NewMockService возвращает mock с успешным сценарием и заданной задержкой.
func NewMockService(delay time.Duration) *MockService {
	if delay < 0 {
		delay = 0
	}
	return &MockService{
		Delay:  delay,
		Status: domain.PaymentStatusAuthorized,
		logger: log.WithField("component", "payment-mock"),
	}
}

// Authorize имитирует обращение к провайдеру.
func (m *MockService) Authorize(ctx context.Context, orderID string, amountMinor int64, currency string, method domain.PaymentMethod) (domain.PaymentStatus, error) {
	m.mu.Lock()
	m.calls++
	delay, status, err := m.Delay, m.Status, m.Err
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.PaymentStatusFailed, fmt.Errorf("authorize payment: %w", ctx.Err())
		case <-timer.C:
		}
	}

	m.logger.WithFields(log.Fields{
		"order_id":     orderID,
		"amount_minor": amountMinor,
		"currency":     currency,
		"method":       method,
		"status":       status,
	}).Info("payment authorization simulated")

	return status, err
}

// Calls возвращает количество вызовов Authorize.
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SetResult меняет результат следующих авторизаций.
func (m *MockService) SetResult(status domain.PaymentStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = status
	m.Err = err
}

var _ domain.PaymentService = (*MockService)(nil)
