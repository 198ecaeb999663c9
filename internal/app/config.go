package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пустое значение отключает Kafka.
	KafkaBrokers       string
	KafkaTopic         string
	KafkaConsumerGroup string
	RabbitMQURL        string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	SessionTTL              time.Duration
	SessionCleanupInterval  time.Duration
	SessionCleanupBatchSize int

	PaymentDelay     time.Duration
	ShippingFeeMinor int64
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                ":8080",
		GRPCAddr:                ":50051",
		MetricsAddr:             ":9090",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		KafkaTopic:              kafka.TopicOrderEvents,
		KafkaConsumerGroup:      "storefront-notifications",
		OutboxPollInterval:      time.Second,
		OutboxBatchSize:         100,
		OutboxMaxAttempts:       3,
		OutboxRetryDelay:        200 * time.Millisecond,
		SessionTTL:              7 * 24 * time.Hour,
		SessionCleanupInterval:  5 * time.Minute,
		SessionCleanupBatchSize: 500,
		PaymentDelay:            2 * time.Second,
		ShippingFeeMinor:        checkout.DefaultShippingMinor,
	}
}

// Validate проверяет согласованность настроек до запуска.
// Все найденные нарушения возвращаются одной ошибкой.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch driver := strings.ToLower(strings.TrimSpace(c.StorageDriver)); driver {
	case "", StorageDriverMemory:
	case StorageDriverPostgres:
		check(strings.TrimSpace(c.PostgresDSN) != "", "postgres dsn is required for postgres storage driver")
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	check(c.HTTPAddr != "", "http addr is empty")
	check(c.GRPCAddr != "", "grpc addr is empty")
	check(c.OutboxPollInterval > 0, "outbox poll interval must be > 0, got %s", c.OutboxPollInterval)
	check(c.OutboxBatchSize > 0, "outbox batch size must be > 0, got %d", c.OutboxBatchSize)
	check(c.OutboxMaxAttempts > 0, "outbox max attempts must be > 0, got %d", c.OutboxMaxAttempts)
	check(c.OutboxRetryDelay >= 0, "outbox retry delay must be >= 0, got %s", c.OutboxRetryDelay)
	check(c.SessionTTL > 0, "session ttl must be > 0, got %s", c.SessionTTL)
	check(c.SessionCleanupInterval > 0, "session cleanup interval must be > 0, got %s", c.SessionCleanupInterval)
	check(c.SessionCleanupBatchSize > 0, "session cleanup batch size must be > 0, got %d", c.SessionCleanupBatchSize)
	check(c.PaymentDelay >= 0, "payment delay must be >= 0, got %s", c.PaymentDelay)
	check(c.ShippingFeeMinor > 0, "shipping fee must be > 0, got %d", c.ShippingFeeMinor)
	if c.KafkaBrokers != "" {
		check(strings.TrimSpace(c.KafkaTopic) != "", "kafka topic is required when brokers are set")
	}

	return errors.Join(errs...)
}
