// Package session удаляет неактивные корзины и мастера оформления.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultCleanupInterval  = 5 * time.Minute
	defaultSessionTTL       = 7 * 24 * time.Hour
	defaultCleanupBatchSize = 500
)

var (
	cleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_cleanup_runs_total",
		Help: "Total number of session cleanup runs grouped by result.",
	}, []string{"result"})
	cleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_cleanup_deleted_total",
		Help: "Total number of removed idle sessions grouped by target.",
	}, []string{"target"})
)

// Registry — реестр корзин в памяти.
// TouchActive вызывается до удаления из storage: корзины живых сессий
// получают свежее время записи.
type Registry interface {
	TouchActive(seenSince time.Time) int
	Evict(idleBefore time.Time) int
	Len() int
}

// WizardEvictor удаляет неактивные мастера оформления.
type WizardEvictor interface {
	EvictWizards(idleBefore time.Time) int
}

// ActiveSessionsGauge принимает текущее число корзин в памяти.
type ActiveSessionsGauge interface {
	SetActiveSessions(n int)
}

// CleanupOptions задает параметры воркера очистки.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	TTL       time.Duration
	BatchSize int
	Wizards   WizardEvictor
	Gauge     ActiveSessionsGauge
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задает logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между циклами очистки.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithTTL задает время неактивности, после которого сессия удаляется.
func WithTTL(ttl time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.TTL = ttl
	}
}

// WithBatchSize задает размер batch для одного удаления из хранилища.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// WithWizards подключает очистку мастеров оформления.
func WithWizards(wizards WizardEvictor) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Wizards = wizards
	}
}

// WithGauge подключает метрику активных сессий.
func WithGauge(gauge ActiveSessionsGauge) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Gauge = gauge
	}
}

// Report — итог одного цикла очистки.
type Report struct {
	StoresTouched   int
	StoredDeleted   int
	StoresEvicted   int
	WizardsEvicted  int
	ActiveRemaining int
}

// CleanupWorker периодически удаляет сессии, неактивные дольше TTL.
type CleanupWorker struct {
	storage   domain.CartStorage
	registry  Registry
	wizards   WizardEvictor
	gauge     ActiveSessionsGauge
	logger    *log.Entry
	interval  time.Duration
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

// NewCleanupWorker создает воркер очистки сессий.
func NewCleanupWorker(storage domain.CartStorage, registry Registry, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		TTL:       defaultSessionTTL,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "session-cleanup-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultSessionTTL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		storage:   storage,
		registry:  registry,
		wizards:   opts.Wizards,
		gauge:     opts.Gauge,
		logger:    logger,
		interval:  opts.Interval,
		ttl:       opts.TTL,
		batchSize: opts.BatchSize,
		now:       time.Now,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.storage == nil && w.registry == nil {
		w.logger.Warn("session cleanup worker is disabled: storage and registry are nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	report, err := w.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		cleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("session cleanup run failed")
		return
	}

	cleanupRunsTotal.WithLabelValues("ok").Inc()
	if report.StoredDeleted > 0 || report.StoresEvicted > 0 || report.WizardsEvicted > 0 {
		w.logger.WithFields(log.Fields{
			"stores_touched":  report.StoresTouched,
			"stored_deleted":  report.StoredDeleted,
			"stores_evicted":  report.StoresEvicted,
			"wizards_evicted": report.WizardsEvicted,
			"active":          report.ActiveRemaining,
		}).Info("session cleanup completed")
	}
}

// RunOnce выполняет один цикл: хранилище, затем память.
// Ошибка хранилища не мешает очистке памяти.
func (w *CleanupWorker) RunOnce(ctx context.Context) (Report, error) {
	before := w.now().UTC().Add(-w.ttl)

	var report Report
	if w.registry != nil && w.storage != nil {
		report.StoresTouched = w.registry.TouchActive(before)
	}
	deleted, storageErr := w.DeleteExpired(ctx, before)
	report.StoredDeleted = deleted
	if errors.Is(storageErr, context.Canceled) {
		return report, storageErr
	}

	if w.registry != nil {
		report.StoresEvicted = w.registry.Evict(before)
		cleanupDeletedTotal.WithLabelValues("store").Add(float64(report.StoresEvicted))
		report.ActiveRemaining = w.registry.Len()
		if w.gauge != nil {
			w.gauge.SetActiveSessions(report.ActiveRemaining)
		}
	}
	if w.wizards != nil {
		report.WizardsEvicted = w.wizards.EvictWizards(before)
		cleanupDeletedTotal.WithLabelValues("wizard").Add(float64(report.WizardsEvicted))
	}

	return report, storageErr
}

// DeleteExpired удаляет сохраненные корзины старше before порциями batchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if w.storage == nil {
		return 0, nil
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.storage.DeleteExpired(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			cleanupDeletedTotal.WithLabelValues("storage").Add(float64(deleted))
		}
		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
