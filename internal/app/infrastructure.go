// Package app assembles the process-wide resources both binaries share.
package app

import (
	"context"
	"fmt"

	"github.com/example/ec-orders/internal/command"
	"github.com/example/ec-orders/internal/config"
	"github.com/example/ec-orders/internal/events"
	"github.com/example/ec-orders/internal/infrastructure/kafka"
	"github.com/example/ec-orders/internal/infrastructure/redisx"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"github.com/example/ec-orders/internal/infrastructure/store/memstore"
	"github.com/example/ec-orders/internal/infrastructure/store/mongostore"
	"github.com/example/ec-orders/internal/infrastructure/store/pgstore"
	"github.com/example/ec-orders/internal/logging"
	"github.com/example/ec-orders/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

// Infrastructure holds expensive-to-create singleton resources
type Infrastructure struct {
	Config *config.Config
	Logger *zap.Logger
	Store  store.Store
	// Redis is nil when REDIS_ADDR is unset.
	Redis *redis.Client

	traceShutdown func(context.Context) error
}

// NewInfrastructure builds the logger, tracing and the store selected by
// cfg.StoreDriver. On error everything opened so far is released.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (_ *Infrastructure, err error) {
	logger, err := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	infra := &Infrastructure{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			infra.Shutdown(context.Background())
		}
	}()

	infra.traceShutdown, err = observability.SetupTracing(ctx, cfg.ServiceName, Version, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	infra.Store, err = OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		infra.Redis, err = redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	return infra, nil
}

// OpenStore connects the configured backend. The postgres schema is
// migrated on open.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
		return s, nil

	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := pgstore.New(db)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		logger.Info("connected to postgres")
		return s, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Publisher returns a Kafka producer when brokers are configured and a
// no-op publisher otherwise, plus the func that closes it.
func (infra *Infrastructure) Publisher() (events.Publisher, func() error) {
	if len(infra.Config.KafkaBrokers) == 0 {
		infra.Logger.Warn("KAFKA_BROKERS unset; order events are not published")
		return events.NopPublisher{}, func() error { return nil }
	}
	p := kafka.NewProducer(infra.Config.KafkaBrokers, infra.Config.KafkaTopic)
	infra.Logger.Info("publishing order events",
		zap.Strings("brokers", infra.Config.KafkaBrokers),
		zap.String("topic", infra.Config.KafkaTopic),
	)
	return p, p.Close
}

// Idempotency returns the store backing the Idempotency-Key header: redis
// when configured, a process-local map alongside the in-memory store, and nil
// otherwise, which disables the header.
func (infra *Infrastructure) Idempotency() command.IdempotencyStore {
	switch {
	case infra.Redis != nil:
		return redisx.NewIdempotencyStore(infra.Redis)
	case infra.Config.StoreDriver == config.DriverMemory:
		infra.Logger.Info("REDIS_ADDR unset; idempotency keys kept in process memory")
		return redisx.NewMemoryIdempotency()
	default:
		infra.Logger.Warn("REDIS_ADDR unset; Idempotency-Key header is ignored")
		return nil
	}
}

// Shutdown gracefully shuts down all infrastructure components
func (infra *Infrastructure) Shutdown(ctx context.Context) {
	if infra.Redis != nil {
		if err := infra.Redis.Close(); err != nil {
			infra.Logger.Error("close redis", zap.Error(err))
		}
	}
	if infra.Store != nil {
		if err := infra.Store.Close(ctx); err != nil {
			infra.Logger.Error("close store", zap.Error(err))
		}
	}
	if infra.traceShutdown != nil {
		if err := infra.traceShutdown(ctx); err != nil {
			infra.Logger.Error("shutdown tracing", zap.Error(err))
		}
	}
	_ = infra.Logger.Sync()
}
