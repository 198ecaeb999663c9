// Package httpapi — JSON API витрины поверх chi.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const requestTimeout = 30 * time.Second

// NewRouter собирает маршруты API и health-эндпоинты.
func NewRouter(h *Handler, healthHandler *health.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/livez", health.LivenessHandler)
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, version.Current())
	})
	if healthHandler != nil {
		r.Get("/healthz", healthHandler.ServeHTTP)
		r.Get("/readyz", healthHandler.ReadinessHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/categories", h.ListCategories)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/featured", h.FeaturedProducts)
			r.Get("/{productId}", h.GetProduct)
			r.Get("/{productId}/related", h.RelatedProducts)
		})

		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Put("/open", h.SetCartOpen)
				r.Post("/items", h.AddItem)
				r.Put("/items/{productId}", h.UpdateItem)
				r.Delete("/items/{productId}", h.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.GetCheckout)
				r.Put("/form", h.UpdateCheckoutForm)
				r.Post("/next", h.NextStep)
				r.Post("/back", h.PreviousStep)
				r.Put("/step", h.GoToStep)
				r.Post("/submit", h.SubmitCheckout)
			})
		})

		r.Get("/orders/{orderId}", h.GetOrder)
	})

	return r
}

func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)

			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(started).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Debug("http request")
		})
	}
}
