package domain

import (
	"sort"
	"strings"
)

// CheckoutStep — шаг мастера оформления заказа.
type CheckoutStep string

const (
	// CheckoutStepInformation — контактные данные покупателя.
	CheckoutStepInformation CheckoutStep = "information"
	// CheckoutStepShipping — адрес доставки.
	CheckoutStepShipping CheckoutStep = "shipping"
	// CheckoutStepPayment — выбор способа оплаты и подтверждение.
	CheckoutStepPayment CheckoutStep = "payment"
)

// CheckoutSteps перечисляет шаги в порядке прохождения.
var CheckoutSteps = []CheckoutStep{
	CheckoutStepInformation,
	CheckoutStepShipping,
	CheckoutStepPayment,
}

// Valid проверяет, что шаг известен.
func (s CheckoutStep) Valid() bool {
	switch s {
	case CheckoutStepInformation, CheckoutStepShipping, CheckoutStepPayment:
		return true
	default:
		return false
	}
}

// PaymentMethod — способ оплаты, выбранный покупателем.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodBank   PaymentMethod = "bank"
)

// Valid проверяет, что способ оплаты поддерживается.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodPayPal, PaymentMethodBank:
		return true
	default:
		return false
	}
}

// DefaultCountry подставляется в пустую форму.
const DefaultCountry = "France"

// CheckoutForm — данные формы оформления заказа.
type CheckoutForm struct {
	FirstName     string        `json:"firstName"`
	LastName      string        `json:"lastName"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	City          string        `json:"city"`
	PostalCode    string        `json:"postalCode"`
	Country       string        `json:"country"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// NewCheckoutForm возвращает форму со значениями по умолчанию.
func NewCheckoutForm() CheckoutForm {
	return CheckoutForm{
		Country:       DefaultCountry,
		PaymentMethod: PaymentMethodCard,
	}
}

// Normalized возвращает копию формы без пробелов по краям значений.
func (f CheckoutForm) Normalized() CheckoutForm {
	return CheckoutForm{
		FirstName:     strings.TrimSpace(f.FirstName),
		LastName:      strings.TrimSpace(f.LastName),
		Email:         strings.TrimSpace(f.Email),
		Phone:         strings.TrimSpace(f.Phone),
		Address:       strings.TrimSpace(f.Address),
		City:          strings.TrimSpace(f.City),
		PostalCode:    strings.TrimSpace(f.PostalCode),
		Country:       strings.TrimSpace(f.Country),
		PaymentMethod: PaymentMethod(strings.ToLower(strings.TrimSpace(string(f.PaymentMethod)))),
	}
}

// ValidationError собирает ошибки полей формы: имя поля → сообщение.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Quote — расчёт суммы к оплате.
type Quote struct {
	SubtotalMinor int64  `json:"subtotal_minor"`
	ShippingMinor int64  `json:"shipping_minor"`
	TotalMinor    int64  `json:"total_minor"`
	Currency      string `json:"currency"`
}
