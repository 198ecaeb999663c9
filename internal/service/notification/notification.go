// Package notification отправляет письма-подтверждения по событиям заказов.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrInvalidEvent — payload события не удалось разобрать.
var ErrInvalidEvent = errors.New("invalid order event")

// Handler реагирует на события заказов.
type Handler struct {
	mailer domain.Mailer
	logger *log.Entry
}

// NewHandler создаёт обработчик событий.
func NewHandler(mailer domain.Mailer, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "order-notifications")
	}
	return &Handler{mailer: mailer, logger: logger}
}

// HandleEvent отправляет подтверждение для order.placed; другие типы пропускаются.
func (h *Handler) HandleEvent(ctx context.Context, eventType string, payload []byte) error {
	if eventType != domain.EventTypeOrderPlaced {
		h.logger.WithField("event_type", eventType).Debug("skip unsupported event")
		return nil
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if event.OrderID == "" || event.Email == "" {
		return fmt.Errorf("%w: order_id and email are required", ErrInvalidEvent)
	}

	if err := h.mailer.SendOrderConfirmation(ctx, event.Confirmation()); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", event.OrderID, err)
	}
	return nil
}

// LogMailer пишет письма в лог и хранит отправленные подтверждения.
type LogMailer struct {
	mu     sync.Mutex
	logger *log.Entry
	sent   []domain.OrderConfirmation
}

// NewLogMailer создаёт mailer без внешнего SMTP.
func NewLogMailer(logger *log.Entry) *LogMailer {
	if logger == nil {
		logger = log.WithField("component", "log-mailer")
	}
	return &LogMailer{logger: logger}
}

// SendOrderConfirmation логирует письмо покупателю.
func (m *LogMailer) SendOrderConfirmation(ctx context.Context, confirmation domain.OrderConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sent = append(m.sent, confirmation)
	m.mu.Unlock()

	m.logger.WithFields(log.Fields{
		"order_id":    confirmation.OrderID,
		"email":       confirmation.Email,
		"total_minor": confirmation.TotalMinor,
		"currency":    confirmation.Currency,
	}).Infof("order confirmation sent to %s", confirmation.FirstName)
	return nil
}

// Sent возвращает копию отправленных подтверждений.
func (m *LogMailer) Sent() []domain.OrderConfirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderConfirmation(nil), m.sent...)
}

var _ domain.Mailer = (*LogMailer)(nil)
