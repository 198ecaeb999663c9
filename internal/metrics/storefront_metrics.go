// Package metrics содержит Prometheus-метрики корзины и оформления заказов.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics содержит метрики корзин и оформления.
type StorefrontMetrics struct {
	cartOperations  *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	cartRestores    *prometheus.CounterVec

	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram

	activeSessions prometheus.Gauge
}

// NewStorefrontMetrics регистрирует метрики в DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация переиспользует уже существующие коллекторы.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		cartOperations: register(registerer, "storefront_cart_operations_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Total number of applied cart mutations by operation",
		}, []string{"operation"})),
		persistFailures: register(registerer, "storefront_cart_persist_failures_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Total number of cart storage failures by stage",
		}, []string{"stage"})),
		cartRestores: register(registerer, "storefront_cart_restores_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_restores_total",
			Help: "Total number of cart restores from storage by result",
		}, []string{"result"})),
		checkouts: register(registerer, "storefront_checkouts_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Total number of checkout submissions by result",
		}, []string{"result"})),
		checkoutDuration: register(registerer, "storefront_checkout_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout submissions in seconds, payment simulation included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 2.5, 5, 10},
		})),
		activeSessions: register(registerer, "storefront_active_cart_sessions", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_active_cart_sessions",
			Help: "Number of cart sessions currently held in memory",
		})),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, name string, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	return collector
}

// RecordCartOperation увеличивает счётчик операций корзины.
func (m *StorefrontMetrics) RecordCartOperation(operation string) {
	m.cartOperations.WithLabelValues(operation).Inc()
}

// RecordCartPersistFailure увеличивает счётчик сбоев хранилища корзин.
func (m *StorefrontMetrics) RecordCartPersistFailure(stage string) {
	m.persistFailures.WithLabelValues(stage).Inc()
}

// RecordCartRestored фиксирует результат восстановления корзины.
func (m *StorefrontMetrics) RecordCartRestored(result string) {
	m.cartRestores.WithLabelValues(result).Inc()
}

// RecordCheckout фиксирует результат и длительность оформления.
func (m *StorefrontMetrics) RecordCheckout(result string, duration time.Duration) {
	m.checkouts.WithLabelValues(result).Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

// SetActiveSessions выставляет число корзин в памяти.
func (m *StorefrontMetrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
