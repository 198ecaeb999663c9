package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

type apiFixture struct {
	router   http.Handler
	payments *payment.MockService
	outbox   interface {
		Stats() (domain.OutboxStats, error)
	}
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	c := catalog.New()
	carts := cart.NewSessions(c, memory.NewCartStorage())
	payments := payment.NewMockService(0)
	outbox := memory.NewOutboxRepository()
	svc := checkout.NewService(carts, memory.NewOrderRepository(), payments, outbox)

	healthHandler := health.NewHandler("test")
	return &apiFixture{
		router:   NewRouter(NewHandler(c, carts, svc, nil), healthHandler),
		payments: payments,
		outbox:   outbox,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		FirstName:     "Marie",
		LastName:      "Curie",
		Email:         "marie@example.fr",
		Phone:         "0601020304",
		Address:       "12 rue des Lilas",
		City:          "Paris",
		PostalCode:    "75011",
		Country:       "France",
		PaymentMethod: domain.PaymentMethodCard,
	}
}

func TestProducts_ListFilterAndSort(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products?sort=price-asc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	products := decode[[]productDTO](t, rec)
	require.Len(t, products, 6)
	assert.Equal(t, "ext-5", products[0].ID)
	assert.Equal(t, int64(3499), products[0].PriceMinor)
	assert.Equal(t, "EUR", products[0].Currency)

	rec = f.do(t, http.MethodGet, "/api/products?category=CO2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[[]productDTO](t, rec)
	require.Len(t, filtered, 1)
	assert.Equal(t, "ext-2", filtered[0].ID)
}

func TestProducts_DetailAndNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products/ext-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ProTech X1", decode[productDTO](t, rec).Name)

	rec = f.do(t, http.MethodGet, "/api/products/ext-404", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/ext-404/related", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_FeaturedAndCategories(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products/featured?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]productDTO](t, rec), 2)

	rec = f.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ABC", "CO2", "Eau", "Mousse", "Spécialisé", "Cuisine"}, decode[[]string](t, rec))
}

func TestCart_SessionIsIssuedWhenMissing(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	session := rec.Header().Get(SessionHeader)
	assert.NotEmpty(t, session)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, session, cookies[0].Value)
}

func TestCart_SessionFromCookie(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/cart/items", "cookie-session", map[string]any{"productId": "ext-2"})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-session"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[cartDTO](t, rec).TotalItems)
}

func TestCart_Lifecycle(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-lifecycle"

	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 2})
	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-2"})
	rec := f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[cartDTO](t, rec)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "ext-1", body.Items[0].Product.ID)
	assert.Equal(t, 3, body.Items[0].Quantity)
	assert.Equal(t, int64(3*5999), body.Items[0].LineTotalMinor)
	assert.Equal(t, 4, body.TotalItems)
	assert.Equal(t, int64(3*5999+7999), body.SubtotalMinor)

	rec = f.do(t, http.MethodPut, "/api/cart/items/ext-1", session, map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[cartDTO](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "ext-2", body.Items[0].Product.ID)

	rec = f.do(t, http.MethodPut, "/api/cart/open", session, map[string]any{"open": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[cartDTO](t, rec).IsOpen)

	rec = f.do(t, http.MethodDelete, "/api/cart/items/ext-2", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartDTO](t, rec).Items)

	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-3"})
	rec = f.do(t, http.MethodDelete, "/api/cart", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := decode[cartDTO](t, rec)
	assert.Empty(t, cleared.Items)
	assert.True(t, cleared.IsOpen)
}

func TestCart_AddValidation(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-validation"

	rec := f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cart", session, nil)
	assert.Empty(t, decode[cartDTO](t, rec).Items)
}

func TestCart_QuantityCap(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-cap"

	rec := f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": int64(math.MaxInt64)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": domain.MaxLineQuantity})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, domain.ErrQuantityInvalid.Error())

	rec = f.do(t, http.MethodPut, "/api/cart/items/ext-1", session, map[string]any{"quantity": domain.MaxLineQuantity + 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cart", session, nil)
	body := decode[cartDTO](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, domain.MaxLineQuantity, body.Items[0].Quantity)
	assert.Equal(t, domain.MaxLineQuantity, body.TotalItems)
	assert.Equal(t, int64(domain.MaxLineQuantity)*5999, body.SubtotalMinor)
}

func TestCart_UpdateRequiresQuantity(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-update"

	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 2})

	rec := f.do(t, http.MethodPut, "/api/cart/items/ext-1", session, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "quantity is required", decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPut, "/api/cart/items/ext-1", session, map[string]any{"quantity": nil})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cart", session, nil)
	body := decode[cartDTO](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].Quantity)
}

func TestCheckout_WizardSteps(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-wizard"

	rec := f.do(t, http.MethodGet, "/api/checkout", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[checkoutDTO](t, rec)
	assert.Equal(t, domain.CheckoutStepInformation, view.State.Step)
	assert.Equal(t, "France", view.State.Form.Country)
	assert.Equal(t, int64(595), view.Quote.ShippingMinor)

	rec = f.do(t, http.MethodPost, "/api/checkout/next", session, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decode[errorResponse](t, rec)
	assert.Contains(t, errBody.Fields, "firstName")
	assert.NotContains(t, errBody.Fields, "address")

	rec = f.do(t, http.MethodPut, "/api/checkout/form", session, validForm())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/checkout/next", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CheckoutStepShipping, decode[checkoutDTO](t, rec).State.Step)

	rec = f.do(t, http.MethodPut, "/api/checkout/step", session, map[string]any{"step": "payment"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/checkout/back", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CheckoutStepInformation, decode[checkoutDTO](t, rec).State.Step)
}

func TestCheckout_SubmitClearsCart(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-submit"

	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 1})

	rec := f.do(t, http.MethodGet, "/api/checkout", session, nil)
	assert.Equal(t, int64(5999+595), decode[checkoutDTO](t, rec).Quote.TotalMinor)

	rec = f.do(t, http.MethodPost, "/api/checkout/submit", session, validForm())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[orderDTO](t, rec)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, int64(6594), order.TotalMinor)
	require.Len(t, order.Lines, 1)

	rec = f.do(t, http.MethodGet, "/api/cart", session, nil)
	assert.Empty(t, decode[cartDTO](t, rec).Items)

	rec = f.do(t, http.MethodGet, "/api/orders/"+order.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.ID, decode[orderDTO](t, rec).ID)

	stats, err := f.outbox.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
}

func TestCheckout_SubmitUsesWizardFormWhenBodyEmpty(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-submit-wizard"

	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-4"})
	f.do(t, http.MethodPut, "/api/checkout/form", session, validForm())

	rec := f.do(t, http.MethodPost, "/api/checkout/submit", session, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "marie@example.fr", decode[orderDTO](t, rec).Customer.Email)
}

func TestCheckout_SubmitErrors(t *testing.T) {
	f := newAPIFixture(t)
	const session = "session-submit-errors"

	rec := f.do(t, http.MethodPost, "/api/checkout/submit", session, validForm())
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.do(t, http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1"})

	invalid := validForm()
	invalid.Email = "not-an-email"
	rec = f.do(t, http.MethodPost, "/api/checkout/submit", session, invalid)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Fields, "email")

	f.payments.SetResult(domain.PaymentStatusFailed, nil)
	rec = f.do(t, http.MethodPost, "/api/checkout/submit", session, validForm())
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cart", session, nil)
	assert.Len(t, decode[cartDTO](t, rec).Items, 1)
}

func TestOrders_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCleanSessionID(t *testing.T) {
	assert.Equal(t, "abc-123", cleanSessionID(" abc-123 "))
	assert.Empty(t, cleanSessionID("bad session"))
	assert.Empty(t, cleanSessionID("<script>"))
}

func TestRouter_Version(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, version.Current(), decode[version.Build](t, rec))
}
