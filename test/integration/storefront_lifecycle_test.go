package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	httpapi "github.com/vladislavdragonenkov/storefront/internal/service/http"
	"github.com/vladislavdragonenkov/storefront/internal/service/notification"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// handlerPublisher доставляет outbox-события напрямую обработчику уведомлений.
type handlerPublisher struct {
	handler *notification.Handler
}

func (p handlerPublisher) Publish(event domain.OutboxMessage) error {
	return p.handler.HandleEvent(context.Background(), event.EventType, event.Payload)
}

// StorefrontLifecycleTestSuite проверяет путь покупателя от корзины до письма.
type StorefrontLifecycleTestSuite struct {
	suite.Suite
	router   http.Handler
	carts    *cart.Sessions
	cartRPC  *grpcsvc.CartService
	storage  domain.CartStorage
	orders   domain.OrderRepository
	payments *payment.MockService
	worker   *outbox.Worker
	mailer   *notification.LogMailer
}

func (s *StorefrontLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	products := catalog.New()
	s.storage = memory.NewCartStorage()
	s.orders = memory.NewOrderRepository()
	outboxRepo := memory.NewOutboxRepository()
	s.payments = payment.NewMockService(0)
	s.carts = cart.NewSessions(products, s.storage, cart.WithLogger(logger))

	checkoutSvc := checkout.NewService(s.carts, s.orders, s.payments, outboxRepo, checkout.WithLogger(logger))
	s.cartRPC = grpcsvc.NewCartService(products, s.carts, logger)
	s.router = httpapi.NewRouter(httpapi.NewHandler(products, s.carts, checkoutSvc, logger), nil)

	s.mailer = notification.NewLogMailer(logger)
	s.worker = outbox.NewWorker(outboxRepo, handlerPublisher{handler: notification.NewHandler(s.mailer, logger)},
		outbox.WithLogger(logger),
		outbox.WithRetryBaseDelay(0),
	)
}

func (s *StorefrontLifecycleTestSuite) do(method, path, session string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(httpapi.SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *StorefrontLifecycleTestSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), dst))
}

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		FirstName:     "Marie",
		LastName:      "Dupont",
		Email:         "marie@example.com",
		Phone:         "+33123456789",
		Address:       "12 rue de la Paix",
		City:          "Paris",
		PostalCode:    "75002",
		Country:       "France",
		PaymentMethod: domain.PaymentMethodCard,
	}
}

func (s *StorefrontLifecycleTestSuite) TestSuccessfulPurchase() {
	t := s.T()

	// 1. Новая сессия выдаётся сервером.
	rec := s.do(http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(httpapi.SessionHeader)
	require.NotEmpty(t, session)

	// 2. Наполняем корзину через HTTP.
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 2}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-2"}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1", "quantity": 1}).Code)

	// 3. gRPC видит ту же корзину.
	resp, err := s.cartRPC.GetCart(context.Background(), mustStruct(t, map[string]any{grpcsvc.FieldSessionID: session}))
	require.NoError(t, err)
	require.EqualValues(t, 4, resp.GetFields()["total_items"].GetNumberValue())

	var cartView struct {
		TotalItems    int   `json:"totalItems"`
		SubtotalMinor int64 `json:"subtotalMinor"`
		Items         []struct {
			Quantity int `json:"quantity"`
		} `json:"items"`
	}
	rec = s.do(http.MethodGet, "/api/cart", session, nil)
	s.decode(rec, &cartView)
	require.Equal(t, 4, cartView.TotalItems)
	require.Equal(t, int64(3*5999+7999), cartView.SubtotalMinor)
	require.Len(t, cartView.Items, 2)
	require.Equal(t, 3, cartView.Items[0].Quantity)

	// 4. Мастер оформления проходит все шаги.
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/checkout/form", session, validForm()).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/checkout/next", session, nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/checkout/next", session, nil).Code)

	// 5. Оформление заказа.
	rec = s.do(http.MethodPost, "/api/checkout/submit", session, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID            string `json:"id"`
		SubtotalMinor int64  `json:"subtotalMinor"`
		ShippingMinor int64  `json:"shippingMinor"`
		TotalMinor    int64  `json:"totalMinor"`
	}
	s.decode(rec, &order)
	require.NotEmpty(t, order.ID)
	require.Equal(t, int64(595), order.ShippingMinor)
	require.Equal(t, order.SubtotalMinor+595, order.TotalMinor)
	require.Equal(t, 1, s.payments.Calls())

	// 6. Корзина очищена и сохранена пустой.
	require.Equal(t, 0, s.store(session).TotalItems())
	raw, err := s.storage.Load(cart.KeyFor(session))
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))

	// 7. Заказ доступен для страницы подтверждения.
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/orders/"+order.ID, session, nil).Code)

	// 8. Outbox доставляет событие, покупатель получает письмо.
	result := s.worker.ProcessOnce(context.Background())
	require.Equal(t, 1, result.Sent)
	sent := s.mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, order.ID, sent[0].OrderID)
	require.Equal(t, "marie@example.com", sent[0].Email)
	require.Equal(t, order.TotalMinor, sent[0].TotalMinor)
}

func (s *StorefrontLifecycleTestSuite) TestDeclinedPaymentKeepsCart() {
	t := s.T()
	session := "declined-session"
	s.payments.SetResult(domain.PaymentStatusFailed, nil)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-3"}).Code)

	rec := s.do(http.MethodPost, "/api/checkout/submit", session, validForm())
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, 1, s.store(session).TotalItems())
	require.Zero(t, s.worker.ProcessOnce(context.Background()).Sent)
	require.Empty(t, s.mailer.Sent())
}

func (s *StorefrontLifecycleTestSuite) TestInvalidFormAndEmptyCart() {
	t := s.T()
	session := "invalid-session"

	rec := s.do(http.MethodPost, "/api/checkout/submit", session, validForm())
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-1"}).Code)
	form := validForm()
	form.Email = "not-an-email"
	form.PostalCode = "75"
	rec = s.do(http.MethodPost, "/api/checkout/submit", session, form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	s.decode(rec, &body)
	require.Contains(t, body.Fields, "email")
	require.Contains(t, body.Fields, "postalCode")
	require.Equal(t, 1, s.store(session).TotalItems())
	require.Zero(t, s.payments.Calls())
}

func (s *StorefrontLifecycleTestSuite) TestCartSurvivesRestart() {
	t := s.T()
	session := "restart-session"

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-2", "quantity": 2}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", session, map[string]any{"productId": "ext-4"}).Code)

	restarted := cart.NewSessions(catalog.New(), s.storage)
	store, err := restarted.Get(session)
	require.NoError(t, err)
	items := store.Items()
	require.Len(t, items, 2)
	require.Equal(t, "ext-2", items[0].Product.ID)
	require.Equal(t, 2, items[0].Quantity)
	require.Equal(t, "ext-4", items[1].Product.ID)
}

func (s *StorefrontLifecycleTestSuite) store(session string) *cart.Store {
	store, err := s.carts.Get(session)
	require.NoError(s.T(), err)
	return store
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return st
}

func TestStorefrontLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(StorefrontLifecycleTestSuite))
}
