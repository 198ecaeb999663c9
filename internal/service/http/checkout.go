package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

type goToStepRequest struct {
	Step domain.CheckoutStep `json:"step"`
}

func (h *Handler) checkoutView(w http.ResponseWriter, r *http.Request, state checkout.State) {
	quote, err := h.checkout.Quote(SessionID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutDTO{State: state, Quote: quote})
}

func (h *Handler) sessionWizard(w http.ResponseWriter, r *http.Request) (*checkout.Wizard, bool) {
	wizard, err := h.checkout.Wizard(SessionID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return wizard, true
}

// GetCheckout — GET /api/checkout: шаг мастера, форма и сумма к оплате.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.sessionWizard(w, r)
	if !ok {
		return
	}
	h.checkoutView(w, r, wizard.State())
}

// UpdateCheckoutForm — PUT /api/checkout/form
func (h *Handler) UpdateCheckoutForm(w http.ResponseWriter, r *http.Request) {
	var form domain.CheckoutForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeBadRequest(w, err)
		return
	}
	wizard, ok := h.sessionWizard(w, r)
	if !ok {
		return
	}
	h.checkoutView(w, r, wizard.Update(form))
}

// NextStep — POST /api/checkout/next; 422 с ошибками полей текущего шага.
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.sessionWizard(w, r)
	if !ok {
		return
	}
	state, err := wizard.Next()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.checkoutView(w, r, state)
}

// PreviousStep — POST /api/checkout/back
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	wizard, ok := h.sessionWizard(w, r)
	if !ok {
		return
	}
	h.checkoutView(w, r, wizard.Back())
}

// GoToStep — PUT /api/checkout/step: возврат на пройденный шаг.
func (h *Handler) GoToStep(w http.ResponseWriter, r *http.Request) {
	var req goToStepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	wizard, ok := h.sessionWizard(w, r)
	if !ok {
		return
	}
	state, err := wizard.GoTo(req.Step)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.checkoutView(w, r, state)
}

// SubmitCheckout — POST /api/checkout/submit. Пустое тело — оформить
// форму из мастера.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r.Context())
	wizard, ok := h.sessionWizard(w, r)
	if !ok {
		return
	}

	form := wizard.State().Form
	var body domain.CheckoutForm
	switch err := decodeJSON(w, r, &body); {
	case err == nil:
		form = wizard.Update(body).Form
	case errors.Is(err, errEmptyBody):
	default:
		writeBadRequest(w, err)
		return
	}

	order, err := h.checkout.Submit(r.Context(), sessionID, form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

// GetOrder — GET /api/orders/{orderId}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.checkout.GetOrder(chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}
