package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/session"
)

const workerStopTimeout = 5 * time.Second

// startWorker запускает run в отдельной горутине и возвращает cancel и канал завершения.
func startWorker(ctx context.Context, run func(context.Context)) (context.CancelFunc, <-chan struct{}) {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(workerCtx)
	}()
	return cancel, done
}

// startOutboxWorker запускает публикацию outbox, если транспорт настроен.
func startOutboxWorker(ctx context.Context, cfg Config, deps runtimeDependencies, pubs outboxPublishers, logger *log.Entry) (context.CancelFunc, <-chan struct{}) {
	if pubs.publisher == nil {
		return nil, nil
	}

	opts := []outbox.Option{
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if pubs.dlq != nil {
		opts = append(opts, outbox.WithDLQPublisher(pubs.dlq))
	}

	worker := outbox.NewWorker(deps.outboxRepo, pubs.publisher, opts...)
	return startWorker(ctx, worker.Run)
}

// startSessionCleanup запускает очистку неактивных корзин и мастеров оформления.
func startSessionCleanup(ctx context.Context, cfg Config, deps runtimeDependencies, services *Dependencies, logger *log.Entry) (context.CancelFunc, <-chan struct{}) {
	worker := session.NewCleanupWorker(deps.cartStorage, services.Carts,
		session.WithLogger(logger.WithField("layer", "session-cleanup")),
		session.WithInterval(cfg.SessionCleanupInterval),
		session.WithTTL(cfg.SessionTTL),
		session.WithBatchSize(cfg.SessionCleanupBatchSize),
		session.WithWizards(services.Checkout),
		session.WithGauge(services.Metrics),
	)
	return startWorker(ctx, worker.Run)
}

// shutdownOutboxWorker отменяет воркер и ждёт его завершения не дольше workerStopTimeout.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	shutdownWorker("outbox", cancel, done, logger)
}

func shutdownWorker(name string, cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(workerStopTimeout):
		logger.WithField("worker", name).Warn("worker stop timeout exceeded")
	}
}
