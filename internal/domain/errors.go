package domain

import "errors"

var (
	// Ошибка пустого идентификатора товара.
	ErrProductRequired = errors.New("product id is required")
	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// Ошибка при количестве товара вне диапазона 1..MaxLineQuantity.
	ErrQuantityInvalid = errors.New("quantity is out of range")
	// Ошибка, если цена позиции отрицательная.
	ErrPriceInvalid = errors.New("price must be non-negative")
	// ErrCartStateNotFound — в хранилище нет сохранённой корзины по ключу.
	ErrCartStateNotFound = errors.New("cart state not found")
	// ErrCartEmpty — оформление невозможно без позиций в корзине.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrValidation — базовая ошибка валидации формы оформления.
	ErrValidation = errors.New("checkout form is invalid")
	// ErrCheckoutInProgress — по сессии уже выполняется оформление.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrStepInvalid — неизвестный шаг мастера оформления.
	ErrStepInvalid = errors.New("checkout step is invalid")
	// ErrSessionRequired — запрос без идентификатора сессии.
	ErrSessionRequired = errors.New("session id is required")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match lines sum")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists — заказ с таким ID уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrPaymentDeclined — платёж отклонён провайдером (бизнес-ошибка).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsValidation проверяет, является ли ошибка ошибкой валидации формы.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
