package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	httpapi "github.com/vladislavdragonenkov/storefront/internal/service/http"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// Dependencies содержит сервисы витрины поверх выбранного хранилища.
type Dependencies struct {
	Catalog     *catalog.Catalog
	Carts       *cart.Sessions
	Checkout    *checkout.Service
	Payments    *payment.MockService
	CartService *grpcsvc.CartService
	HTTPHandler *httpapi.Handler
	Metrics     *metrics.StorefrontMetrics
	Logger      *log.Entry
}

// NewDependencies собирает каталог, корзины, оформление и транспортные обработчики.
// Платёжный сервис — имитация с задержкой cfg.PaymentDelay.
func NewDependencies(cfg Config, storage runtimeDependencies, storefrontMetrics *metrics.StorefrontMetrics, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if storefrontMetrics == nil {
		storefrontMetrics = metrics.NewStorefrontMetrics()
	}

	products := catalog.New()
	carts := cart.NewSessions(products, storage.cartStorage,
		cart.WithLogger(logger.WithField("layer", "cart")),
		cart.WithRecorder(storefrontMetrics),
	)
	payments := payment.NewMockService(cfg.PaymentDelay)

	checkoutOpts := []checkout.Option{
		checkout.WithLogger(logger.WithField("layer", "checkout")),
		checkout.WithRecorder(storefrontMetrics),
	}
	if cfg.ShippingFeeMinor > 0 {
		checkoutOpts = append(checkoutOpts, checkout.WithShippingFee(cfg.ShippingFeeMinor))
	}
	checkoutSvc := checkout.NewService(carts, storage.repo, payments, storage.outboxRepo, checkoutOpts...)

	return &Dependencies{
		Catalog:     products,
		Carts:       carts,
		Checkout:    checkoutSvc,
		Payments:    payments,
		CartService: grpcsvc.NewCartService(products, carts, logger.WithField("layer", "grpc")),
		HTTPHandler: httpapi.NewHandler(products, carts, checkoutSvc, logger.WithField("layer", "http")),
		Metrics:     storefrontMetrics,
		Logger:      logger,
	}
}
