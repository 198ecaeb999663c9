package checkout

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Имена полей формы, как их видит клиент.
const (
	FieldFirstName     = "firstName"
	FieldLastName      = "lastName"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldAddress       = "address"
	FieldCity          = "city"
	FieldPostalCode    = "postalCode"
	FieldCountry       = "country"
	FieldPaymentMethod = "paymentMethod"
)

type fieldRule struct {
	name    string
	value   func(domain.CheckoutForm) string
	valid   func(string) bool
	message string
}

func minRunes(n int) func(string) bool {
	return func(v string) bool {
		return utf8.RuneCountInString(v) >= n
	}
}

var stepRules = map[domain.CheckoutStep][]fieldRule{
	domain.CheckoutStepInformation: {
		{FieldFirstName, func(f domain.CheckoutForm) string { return f.FirstName }, minRunes(2), "Le prénom doit contenir au moins 2 caractères"},
		{FieldLastName, func(f domain.CheckoutForm) string { return f.LastName }, minRunes(2), "Le nom doit contenir au moins 2 caractères"},
		{FieldEmail, func(f domain.CheckoutForm) string { return f.Email }, validEmail, "Email invalide"},
		{FieldPhone, func(f domain.CheckoutForm) string { return f.Phone }, minRunes(8), "Numéro de téléphone invalide"},
	},
	domain.CheckoutStepShipping: {
		{FieldAddress, func(f domain.CheckoutForm) string { return f.Address }, minRunes(5), "Adresse invalide"},
		{FieldCity, func(f domain.CheckoutForm) string { return f.City }, minRunes(2), "Ville invalide"},
		{FieldPostalCode, func(f domain.CheckoutForm) string { return f.PostalCode }, minRunes(5), "Code postal invalide"},
		{FieldCountry, func(f domain.CheckoutForm) string { return f.Country }, minRunes(2), "Pays invalide"},
	},
	domain.CheckoutStepPayment: {
		{FieldPaymentMethod, func(f domain.CheckoutForm) string { return string(f.PaymentMethod) }, func(v string) bool {
			return domain.PaymentMethod(v).Valid()
		}, "Mode de paiement invalide"},
	},
}

// validEmail принимает только голый адрес вида local@domain.tld.
func validEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return false
	}
	at := strings.LastIndexByte(v, '@')
	host := v[at+1:]
	return strings.Contains(host, ".") && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".")
}

// ValidateStep проверяет поля одного шага. Значения сравниваются после Normalized.
func ValidateStep(step domain.CheckoutStep, form domain.CheckoutForm) error {
	rules, ok := stepRules[step]
	if !ok {
		return domain.ErrStepInvalid
	}
	return collect(form.Normalized(), rules)
}

// ValidateForm проверяет все шаги сразу.
func ValidateForm(form domain.CheckoutForm) error {
	var rules []fieldRule
	for _, step := range domain.CheckoutSteps {
		rules = append(rules, stepRules[step]...)
	}
	return collect(form.Normalized(), rules)
}

func collect(form domain.CheckoutForm, rules []fieldRule) error {
	var fields map[string]string
	for _, rule := range rules {
		if rule.valid(rule.value(form)) {
			continue
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		fields[rule.name] = rule.message
	}
	if fields == nil {
		return nil
	}
	return &domain.ValidationError{Fields: fields}
}
