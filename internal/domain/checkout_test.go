package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewCheckoutForm_Defaults(t *testing.T) {
	form := NewCheckoutForm()
	if form.Country != "France" {
		t.Fatalf("expected default country France, got %q", form.Country)
	}
	if form.PaymentMethod != PaymentMethodCard {
		t.Fatalf("expected default payment method card, got %q", form.PaymentMethod)
	}
}

func TestCheckoutForm_Normalized(t *testing.T) {
	form := CheckoutForm{
		FirstName:     "  Jean ",
		Email:         " jean.dupont@example.com\t",
		PaymentMethod: " PayPal ",
	}

	got := form.Normalized()
	if got.FirstName != "Jean" {
		t.Fatalf("unexpected first name: %q", got.FirstName)
	}
	if got.Email != "jean.dupont@example.com" {
		t.Fatalf("unexpected email: %q", got.Email)
	}
	if got.PaymentMethod != PaymentMethodPayPal {
		t.Fatalf("unexpected payment method: %q", got.PaymentMethod)
	}
}

func TestCheckoutStepAndPaymentMethod_Valid(t *testing.T) {
	for _, step := range CheckoutSteps {
		if !step.Valid() {
			t.Fatalf("step %q should be valid", step)
		}
	}
	if CheckoutStep("review").Valid() {
		t.Fatal("unknown step should be invalid")
	}

	for _, method := range []PaymentMethod{PaymentMethodCard, PaymentMethodPayPal, PaymentMethodBank} {
		if !method.Valid() {
			t.Fatalf("payment method %q should be valid", method)
		}
	}
	if PaymentMethod("cash").Valid() {
		t.Fatal("cash should be invalid")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"phone": "Numéro de téléphone invalide",
		"email": "Email invalide",
	}}

	if !errors.Is(err, ErrValidation) {
		t.Fatal("validation error should unwrap to ErrValidation")
	}
	if !IsValidation(fmt.Errorf("submit: %w", err)) {
		t.Fatal("wrapped validation error should be detected")
	}

	msg := err.Error()
	if strings.Index(msg, "email") > strings.Index(msg, "phone") {
		t.Fatalf("fields should be sorted in message: %s", msg)
	}

	var empty *ValidationError
	if empty.Error() != ErrValidation.Error() {
		t.Fatalf("unexpected message for empty error: %s", empty.Error())
	}
}
