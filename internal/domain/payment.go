package domain

// PaymentStatus описывает результат авторизации платежа.
type PaymentStatus string

const (
	// PaymentStatusAuthorized — сумма успешно авторизована у провайдера.
	PaymentStatusAuthorized PaymentStatus = "authorized"
	// PaymentStatusFailed — провайдер отклонил платёж.
	PaymentStatusFailed PaymentStatus = "failed"
)
