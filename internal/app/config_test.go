package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.PostgresAutoMigrate)
	assert.Empty(t, cfg.KafkaBrokers, "kafka is off by default")
	assert.Empty(t, cfg.RabbitMQURL, "rabbitmq is off by default")
	assert.Equal(t, kafka.TopicOrderEvents, cfg.KafkaTopic)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2*time.Second, cfg.PaymentDelay)
	assert.Equal(t, int64(595), cfg.ShippingFeeMinor)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{
			name:   "empty driver means memory",
			mutate: func(c *Config) { c.StorageDriver = "" },
		},
		{
			name: "postgres with dsn",
			mutate: func(c *Config) {
				c.StorageDriver = " Postgres "
				c.PostgresDSN = "postgres://storefront@localhost/storefront"
			},
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.StorageDriver = StorageDriverPostgres },
			wantErr: []string{"postgres dsn is required"},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.StorageDriver = "redis" },
			wantErr: []string{`unsupported storage driver "redis"`},
		},
		{
			name: "missing listeners",
			mutate: func(c *Config) {
				c.HTTPAddr = ""
				c.GRPCAddr = ""
			},
			wantErr: []string{"http addr is empty", "grpc addr is empty"},
		},
		{
			name: "outbox tuning",
			mutate: func(c *Config) {
				c.OutboxPollInterval = 0
				c.OutboxBatchSize = -1
				c.OutboxMaxAttempts = 0
				c.OutboxRetryDelay = -time.Second
			},
			wantErr: []string{"outbox poll interval", "outbox batch size", "outbox max attempts", "outbox retry delay"},
		},
		{
			name: "sessions",
			mutate: func(c *Config) {
				c.SessionTTL = 0
				c.SessionCleanupInterval = -time.Minute
				c.SessionCleanupBatchSize = 0
			},
			wantErr: []string{"session ttl", "session cleanup interval", "session cleanup batch size"},
		},
		{
			name: "checkout",
			mutate: func(c *Config) {
				c.PaymentDelay = -time.Millisecond
				c.ShippingFeeMinor = 0
			},
			wantErr: []string{"payment delay", "shipping fee"},
		},
		{
			name:   "zero payment delay is allowed",
			mutate: func(c *Config) { c.PaymentDelay = 0 },
		},
		{
			name: "kafka brokers without topic",
			mutate: func(c *Config) {
				c.KafkaBrokers = "localhost:9092"
				c.KafkaTopic = " "
			},
			wantErr: []string{"kafka topic is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	cfg := localConfig()
	cfg.OutboxBatchSize = 0

	err := Run(t.Context(), cfg)
	require.ErrorContains(t, err, "invalid config")
	require.ErrorContains(t, err, "outbox batch size")
}
