package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

const (
	envHTTPAddr                = "STOREFRONT_HTTP_ADDR"
	envGRPCAddr                = "STOREFRONT_GRPC_ADDR"
	envMetricsAddr             = "STOREFRONT_METRICS_ADDR"
	envStorageDriver           = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN             = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate     = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers            = "STOREFRONT_KAFKA_BROKERS"
	envKafkaTopic              = "STOREFRONT_KAFKA_TOPIC"
	envKafkaConsumerGroup      = "STOREFRONT_KAFKA_CONSUMER_GROUP"
	envRabbitMQURL             = "STOREFRONT_RABBITMQ_URL"
	envOutboxPollInterval      = "STOREFRONT_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize         = "STOREFRONT_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts       = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay        = "STOREFRONT_OUTBOX_RETRY_DELAY"
	envSessionTTL              = "STOREFRONT_SESSION_TTL"
	envSessionCleanupInterval  = "STOREFRONT_SESSION_CLEANUP_INTERVAL"
	envSessionCleanupBatchSize = "STOREFRONT_SESSION_CLEANUP_BATCH_SIZE"
	envPaymentDelay            = "STOREFRONT_PAYMENT_DELAY"
	envShippingFeeMinor        = "STOREFRONT_SHIPPING_FEE_MINOR"
	envLogLevel                = "STOREFRONT_LOG_LEVEL"
)

// envLookup совпадает по сигнатуре с os.LookupEnv.
type envLookup func(key string) (string, bool)

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения пропускаются с предупреждением, остаётся значение по умолчанию.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	stringVar := func(key string, dst *string, normalize func(string) string) {
		value, ok := lookup(key)
		if !ok {
			return
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if normalize != nil {
			value = normalize(value)
		}
		*dst = value
	}

	positiveInt := func(key string, dst *int) {
		value, ok := lookup(key)
		if !ok {
			return
		}
		parsed, err := parseInt(value, func(v int) bool { return v > 0 }, "must be > 0")
		if err != nil {
			warn(key, value, err)
			return
		}
		*dst = parsed
	}

	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		value, ok := lookup(key)
		if !ok {
			return
		}
		parsed, err := parseDuration(value, valid, rule)
		if err != nil {
			warn(key, value, err)
			return
		}
		*dst = parsed
	}
	positive := func(v time.Duration) bool { return v > 0 }
	nonNegative := func(v time.Duration) bool { return v >= 0 }

	stringVar(envHTTPAddr, &cfg.HTTPAddr, nil)
	stringVar(envGRPCAddr, &cfg.GRPCAddr, nil)
	stringVar(envMetricsAddr, &cfg.MetricsAddr, nil)
	stringVar(envStorageDriver, &cfg.StorageDriver, strings.ToLower)
	stringVar(envPostgresDSN, &cfg.PostgresDSN, nil)
	stringVar(envKafkaBrokers, &cfg.KafkaBrokers, nil)
	stringVar(envKafkaTopic, &cfg.KafkaTopic, nil)
	stringVar(envKafkaConsumerGroup, &cfg.KafkaConsumerGroup, nil)
	stringVar(envRabbitMQURL, &cfg.RabbitMQURL, nil)

	if value, ok := lookup(envPostgresAutoMigrate); ok {
		parsed, err := parseBool(value)
		if err != nil {
			warn(envPostgresAutoMigrate, value, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positive, "must be > 0")
	positiveInt(envOutboxBatchSize, &cfg.OutboxBatchSize)
	positiveInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegative, "must be >= 0")

	duration(envSessionTTL, &cfg.SessionTTL, positive, "must be > 0")
	duration(envSessionCleanupInterval, &cfg.SessionCleanupInterval, positive, "must be > 0")
	positiveInt(envSessionCleanupBatchSize, &cfg.SessionCleanupBatchSize)

	duration(envPaymentDelay, &cfg.PaymentDelay, nonNegative, "must be >= 0")

	if value, ok := lookup(envShippingFeeMinor); ok {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		switch {
		case err != nil:
			warn(envShippingFeeMinor, value, err)
		case parsed <= 0:
			warn(envShippingFeeMinor, value, fmt.Errorf("must be > 0"))
		default:
			cfg.ShippingFeeMinor = parsed
		}
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("%s", rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("%s", rule)
	}
	return value, nil
}
