package app

import (
	"context"
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/storefront/internal/service/notification"
)

const confirmationMaxRetries = 3

// splitBrokers разбирает список брокеров через запятую.
func splitBrokers(brokers string) []string {
	var out []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// outboxPublishers — выбранный транспорт для outbox и его освобождение.
type outboxPublishers struct {
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	checker   healthcheck.Checker
	closeFn   func()
}

// initOutboxPublishers выбирает транспорт outbox: Kafka, если есть producer,
// иначе RabbitMQ, если задан URL. Без транспорта publisher остаётся nil.
func initOutboxPublishers(cfg Config, producer *kafka.Producer, logger *log.Entry) outboxPublishers {
	if producer != nil {
		logger.WithField("topic", cfg.KafkaTopic).Info("outbox публикует события в kafka")
		return outboxPublishers{
			publisher: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			dlq:       kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue),
		}
	}

	url := strings.TrimSpace(cfg.RabbitMQURL)
	if url == "" {
		logger.Info("брокер сообщений не настроен, outbox worker отключён")
		return outboxPublishers{}
	}

	publisher, conn, err := rabbitmq.Dial(url)
	if err != nil {
		logger.WithError(err).Warn("failed to connect to rabbitmq, continuing without outbox publisher")
		return outboxPublishers{}
	}

	logger.WithField("exchange", rabbitmq.EventsExchange).Info("outbox публикует события в rabbitmq")
	return outboxPublishers{
		publisher: publisher,
		checker: healthcheck.NewSimpleChecker("rabbitmq", func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("rabbitmq connection is closed")
			}
			return nil
		}),
		closeFn: func() {
			if err := publisher.Close(); err != nil {
				logger.WithError(err).Warn("failed to close rabbitmq channel")
			}
			if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				logger.WithError(err).Warn("failed to close rabbitmq connection")
			}
		},
	}
}

// startConfirmationConsumer запускает consumer group, отправляющий письма-подтверждения.
// Повторно необработанные сообщения уходят в DLQ через producer.
func startConfirmationConsumer(ctx context.Context, cfg Config, producer *kafka.Producer, logger *log.Entry) *kafka.Consumer {
	brokers := splitBrokers(cfg.KafkaBrokers)
	if producer == nil || len(brokers) == 0 || strings.TrimSpace(cfg.KafkaConsumerGroup) == "" {
		return nil
	}

	handler := notification.NewHandler(
		notification.NewLogMailer(logger.WithField("layer", "mailer")),
		logger.WithField("layer", "notification"),
	)
	consumer, err := kafka.NewConsumerWithDLQ(
		brokers,
		cfg.KafkaConsumerGroup,
		[]string{cfg.KafkaTopic},
		kafka.EnvelopeHandler(handler.HandleEvent),
		producer,
		confirmationMaxRetries,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, confirmations disabled")
		return nil
	}
	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Warn("failed to start kafka consumer, confirmations disabled")
		_ = consumer.Stop()
		return nil
	}

	logger.WithFields(log.Fields{
		"group": cfg.KafkaConsumerGroup,
		"topic": cfg.KafkaTopic,
	}).Info("kafka consumer подтверждений запущен")
	return consumer
}

// stopConsumer останавливает consumer если он не nil.
func stopConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}
