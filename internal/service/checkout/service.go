// Package checkout реализует оформление заказа: мастер шагов, расчёт суммы
// и отправку заказа с очисткой корзины.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultShippingMinor — фиксированная стоимость доставки, 5,95 €.
const DefaultShippingMinor int64 = 595

// Результаты оформления для метрик.
const (
	ResultSuccess       = "success"
	ResultEmptyCart     = "empty_cart"
	ResultInvalid       = "invalid"
	ResultPaymentFailed = "payment_failed"
	ResultInProgress    = "in_progress"
	ResultError         = "error"
)

// Recorder принимает метрики оформления.
type Recorder interface {
	RecordCheckout(result string, duration time.Duration)
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder задаёт приёмник метрик.
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithShippingFee переопределяет стоимость доставки в центах.
func WithShippingFee(minor int64) Option {
	return func(s *Service) {
		if minor >= 0 {
			s.shippingMinor = minor
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator подменяет генератор идентификаторов заказов.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

type wizardEntry struct {
	wizard   *Wizard
	lastSeen time.Time
}

// Service оформляет заказы по корзинам сессий.
type Service struct {
	carts    *cart.Sessions
	orders   domain.OrderRepository
	payments domain.PaymentService
	outbox   domain.OutboxRepository
	logger   *log.Entry
	recorder Recorder

	shippingMinor int64
	now           func() time.Time
	newID         func() string

	mu      sync.Mutex
	wizards map[string]*wizardEntry
}

// NewService создаёт сервис оформления.
func NewService(
	carts *cart.Sessions,
	orders domain.OrderRepository,
	payments domain.PaymentService,
	outbox domain.OutboxRepository,
	opts ...Option,
) *Service {
	s := &Service{
		carts:         carts,
		orders:        orders,
		payments:      payments,
		outbox:        outbox,
		logger:        log.WithField("component", "checkout"),
		shippingMinor: DefaultShippingMinor,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		wizards:       make(map[string]*wizardEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wizard возвращает мастер оформления сессии, создавая его при первом обращении.
func (s *Service) Wizard(sessionID string) (*Wizard, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.wizards[sessionID]
	if !ok {
		entry = &wizardEntry{wizard: NewWizard()}
		s.wizards[sessionID] = entry
	}
	entry.lastSeen = s.now()
	return entry.wizard, nil
}

// EvictWizards удаляет мастера, к которым не обращались с idleBefore.
func (s *Service) EvictWizards(idleBefore time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.wizards {
		if entry.lastSeen.Before(idleBefore) {
			delete(s.wizards, id)
			evicted++
		}
	}
	return evicted
}

// Quote считает сумму к оплате по текущей корзине сессии.
func (s *Service) Quote(sessionID string) (domain.Quote, error) {
	store, err := s.carts.Get(sessionID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.quote(store.Subtotal()), nil
}

func (s *Service) quote(subtotal int64) domain.Quote {
	return domain.Quote{
		SubtotalMinor: subtotal,
		ShippingMinor: s.shippingMinor,
		TotalMinor:    subtotal + s.shippingMinor,
		Currency:      domain.Currency,
	}
}

// Submit оформляет заказ: проверяет корзину и форму, авторизует оплату,
// сохраняет заказ, ставит событие order.placed в outbox и только после
// этого вычитает оформленные позиции из корзины и сбрасывает мастер.
// Товары, добавленные во время оплаты, остаются в корзине.
func (s *Service) Submit(ctx context.Context, sessionID string, form domain.CheckoutForm) (order domain.Order, err error) {
	started := time.Now()
	result := ResultError
	defer func() {
		if s.recorder != nil {
			s.recorder.RecordCheckout(result, time.Since(started))
		}
	}()

	store, err := s.carts.Get(sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	wizard, err := s.Wizard(sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	if !wizard.beginSubmit() {
		result = ResultInProgress
		return domain.Order{}, domain.ErrCheckoutInProgress
	}
	defer wizard.endSubmit()

	logger := s.logger.WithField("session_id", sessionID)

	items := store.Items()
	if len(items) == 0 {
		result = ResultEmptyCart
		return domain.Order{}, domain.ErrCartEmpty
	}

	form = form.Normalized()
	if err := ValidateForm(form); err != nil {
		result = ResultInvalid
		return domain.Order{}, err
	}

	order = s.buildOrder(sessionID, form, items)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, fmt.Errorf("build order: %w", errors.Join(errs...))
	}
	logger = logger.WithField("order_id", order.ID)

	status, err := s.payments.Authorize(ctx, order.ID, order.TotalMinor, order.Currency, form.PaymentMethod)
	if err != nil {
		result = ResultPaymentFailed
		logger.WithError(err).Warn("payment authorization failed")
		return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrPaymentDeclined, err)
	}
	if status != domain.PaymentStatusAuthorized {
		result = ResultPaymentFailed
		logger.WithField("payment_status", status).Warn("payment declined")
		return domain.Order{}, domain.ErrPaymentDeclined
	}

	if err := s.orders.Create(order); err != nil {
		logger.WithError(err).Error("failed to save order")
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	if err := s.enqueuePlaced(order); err != nil {
		logger.WithError(err).Error("failed to enqueue order event")
		return domain.Order{}, err
	}

	store.RemoveOrdered(items)
	wizard.Reset()

	result = ResultSuccess
	logger.WithFields(log.Fields{
		"total_minor": order.TotalMinor,
		"lines":       len(order.Lines),
	}).Info("order placed")
	return order, nil
}

// GetOrder возвращает оформленный заказ для страницы подтверждения.
func (s *Service) GetOrder(id string) (domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	return s.orders.Get(id)
}

func (s *Service) buildOrder(sessionID string, form domain.CheckoutForm, items []domain.LineItem) domain.Order {
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.OrderLine{
			ProductID:  item.Product.ID,
			Name:       item.Product.Name,
			Qty:        item.Quantity,
			PriceMinor: item.Product.PriceMinor,
		})
	}
	quote := s.quote(domain.Subtotal(items))

	return domain.Order{
		ID:            s.newID(),
		SessionID:     sessionID,
		Status:        domain.OrderStatusConfirmed,
		Customer:      form,
		Lines:         lines,
		SubtotalMinor: quote.SubtotalMinor,
		ShippingMinor: quote.ShippingMinor,
		TotalMinor:    quote.TotalMinor,
		Currency:      quote.Currency,
		CreatedAt:     s.now(),
	}
}

func (s *Service) enqueuePlaced(order domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderPlacedEvent(order))
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue order event: %w", err)
	}
	return nil
}
