package domain

import "time"

const (
	// AggregateTypeOrder — тип агрегата для outbox-сообщений о заказах.
	AggregateTypeOrder = "order"
	// EventTypeOrderPlaced публикуется после успешного оформления заказа.
	EventTypeOrderPlaced = "order.placed"
)

// OrderPlacedLine — позиция в событии order.placed.
type OrderPlacedLine struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

// OrderPlacedEvent — payload события order.placed.
type OrderPlacedEvent struct {
	OrderID       string            `json:"order_id"`
	SessionID     string            `json:"session_id"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Lines         []OrderPlacedLine `json:"lines"`
	SubtotalMinor int64             `json:"subtotal_minor"`
	ShippingMinor int64             `json:"shipping_minor"`
	TotalMinor    int64             `json:"total_minor"`
	Currency      string            `json:"currency"`
	PlacedAt      time.Time         `json:"placed_at"`
}

// NewOrderPlacedEvent строит событие из сохранённого заказа.
func NewOrderPlacedEvent(order Order) OrderPlacedEvent {
	lines := make([]OrderPlacedLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderPlacedLine{
			ProductID:  line.ProductID,
			Name:       line.Name,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}

	return OrderPlacedEvent{
		OrderID:       order.ID,
		SessionID:     order.SessionID,
		Email:         order.Customer.Email,
		FirstName:     order.Customer.FirstName,
		LastName:      order.Customer.LastName,
		PaymentMethod: order.Customer.PaymentMethod,
		Lines:         lines,
		SubtotalMinor: order.SubtotalMinor,
		ShippingMinor: order.ShippingMinor,
		TotalMinor:    order.TotalMinor,
		Currency:      order.Currency,
		PlacedAt:      order.CreatedAt,
	}
}

// Confirmation возвращает данные письма-подтверждения.
func (e OrderPlacedEvent) Confirmation() OrderConfirmation {
	return OrderConfirmation{
		OrderID:    e.OrderID,
		Email:      e.Email,
		FirstName:  e.FirstName,
		TotalMinor: e.TotalMinor,
		Currency:   e.Currency,
	}
}
