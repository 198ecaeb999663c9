package domain

import "time"

// OrderStatus описывает состояние оформленного заказа.
type OrderStatus string

// OrderStatusConfirmed — оплата авторизована, заказ принят.
const OrderStatusConfirmed OrderStatus = "confirmed"

// OrderLine — позиция заказа, зафиксированная на момент оформления.
type OrderLine struct {
	ProductID  string
	Name       string
	Qty        int
	PriceMinor int64
}

// Order — результат успешного оформления корзины.
type Order struct {
	ID            string
	SessionID     string
	Status        OrderStatus
	Customer      CheckoutForm
	Lines         []OrderLine
	SubtotalMinor int64
	ShippingMinor int64
	TotalMinor    int64
	Currency      string
	CreatedAt     time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrCartEmpty)
	}
	if o.ShippingMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем подытог с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrPriceInvalid)
		}
		calc += int64(line.Qty) * line.PriceMinor
	}
	if calc != o.SubtotalMinor || o.SubtotalMinor+o.ShippingMinor != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
