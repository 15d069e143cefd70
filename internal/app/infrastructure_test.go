package app

import (
	"context"
	"testing"

	"github.com/example/ec-orders/internal/config"
	"github.com/example/ec-orders/internal/events"
	"github.com/example/ec-orders/internal/infrastructure/kafka"
	"github.com/example/ec-orders/internal/infrastructure/redisx"
	"github.com/example/ec-orders/internal/infrastructure/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		ServiceName: "ec-orders-test",
		StoreDriver: config.DriverMemory,
		LogLevel:    "error",
		LogFormat:   "json",
		KafkaTopic:  "order-events",
	}
}

func TestNewInfrastructure_Memory(t *testing.T) {
	infra, err := NewInfrastructure(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer infra.Shutdown(context.Background())

	assert.IsType(t, &memstore.Store{}, infra.Store)
	assert.Nil(t, infra.Redis)
}

func TestNewInfrastructure_BadLogLevel(t *testing.T) {
	cfg := memoryConfig()
	cfg.LogLevel = "chatty"

	_, err := NewInfrastructure(context.Background(), cfg)

	assert.Error(t, err)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "dynamo"

	_, err := OpenStore(context.Background(), cfg, zap.NewNop())

	assert.ErrorContains(t, err, `unknown store driver "dynamo"`)
}

func TestPublisher(t *testing.T) {
	infra := &Infrastructure{Config: memoryConfig(), Logger: zap.NewNop()}

	pub, closePub := infra.Publisher()
	assert.Equal(t, events.NopPublisher{}, pub)
	assert.NoError(t, closePub())

	infra.Config.KafkaBrokers = []string{"localhost:9092"}
	pub, closePub = infra.Publisher()
	assert.IsType(t, &kafka.Producer{}, pub)
	assert.NoError(t, closePub())
}

func TestIdempotency(t *testing.T) {
	t.Run("memory store keeps keys in process", func(t *testing.T) {
		infra := &Infrastructure{Config: memoryConfig(), Logger: zap.NewNop()}

		idem := infra.Idempotency()

		assert.IsType(t, &redisx.MemoryIdempotency{}, idem)
		require.NoError(t, idem.Remember(context.Background(), "u-1", "k-1", "o-1"))
		id, ok, err := idem.Lookup(context.Background(), "u-1", "k-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "o-1", id)
	})

	t.Run("redis wins when configured", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
		defer rdb.Close()
		infra := &Infrastructure{Config: memoryConfig(), Logger: zap.NewNop(), Redis: rdb}

		assert.IsType(t, &redisx.IdempotencyStore{}, infra.Idempotency())
	})

	t.Run("durable store without redis disables keys", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.StoreDriver = config.DriverMongo
		infra := &Infrastructure{Config: cfg, Logger: zap.NewNop()}

		assert.Nil(t, infra.Idempotency())
	})
}
