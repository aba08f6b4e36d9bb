// Package initializer turns the loaded configuration into running
// infrastructure: logger, database, event bus and distributed lock.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/ledger/infra"
	infra_eventbus "github.com/amirasaad/ledger/infra/eventbus"
	"github.com/amirasaad/ledger/infra/lock"
	infra_repository "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const connectTimeout = 10 * time.Second

// Deps is the infrastructure built from configuration. Close releases it in
// reverse order of creation.
type Deps struct {
	DB       *gorm.DB
	EventBus eventbus.Bus
	Locker   *lock.RedisLocker
	Logger   *slog.Logger

	closers []io.Closer
}

// ToAppDeps converts Deps into the dependencies the services are built on.
func (d *Deps) ToAppDeps() *app.Deps {
	deps := &app.Deps{
		Uow:      infra_repository.NewUoW(d.DB),
		EventBus: d.EventBus,
		Logger:   d.Logger,
	}
	if d.Locker != nil {
		deps.Locker = d.Locker
	}
	return deps
}

// Close releases every connection opened by InitializeDependencies.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (deps *Deps, err error) {
	logger := SetupLogger(cfg.Log)
	deps = &Deps{Logger: logger}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return deps, err
	}
	deps.DB = db
	if sqlDB, err := db.DB(); err == nil {
		deps.closers = append(deps.closers, sqlDB)
	}

	if cfg.DB.AutoMigrate {
		if err := infra.Migrate(db); err != nil {
			return deps, err
		}
		logger.Info("Database migrations applied")
	}

	bus, busCloser, err := initEventBus(cfg, logger)
	if err != nil {
		return deps, err
	}
	deps.EventBus = bus
	if busCloser != nil {
		deps.closers = append(deps.closers, busCloser)
	}

	if cfg.Lock != nil && cfg.Lock.RedisURL != "" {
		client, err := newRedisClient(cfg.Lock.RedisURL, cfg.Redis)
		if err != nil {
			return deps, fmt.Errorf("failed to connect distributed lock: %w", err)
		}
		deps.closers = append(deps.closers, client)
		deps.Locker = lock.NewRedisLocker(client, redisPrefix(cfg.Redis)+"lock:", cfg.Lock.TTL, cfg.Lock.RetryInterval, logger)
		logger.Info("Distributed lock enabled", "ttl", cfg.Lock.TTL)
	}

	return deps, nil
}

// initEventBus builds the bus named by EVENT_BUS_DRIVER. A configured but
// unreachable Redis or Kafka falls back to the in-memory bus with a warning.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, io.Closer, error) {
	driver := "memory"
	if cfg.EventBus != nil && cfg.EventBus.Driver != "" {
		driver = strings.ToLower(cfg.EventBus.Driver)
	}

	switch driver {
	case "memory":
		return infra_eventbus.NewWithMemory(logger), nil, nil

	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, nil, errors.New("event bus driver redis requires REDIS_URL")
		}
		client, err := newRedisClient(cfg.Redis.URL, cfg.Redis)
		if err != nil {
			logger.Warn("Redis unreachable, using in-memory event bus", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil, nil
		}
		bus, err := infra_eventbus.NewWithRedis(client, cfg.EventBus.Stream, cfg.EventBus.Group, logger)
		if err != nil {
			_ = client.Close()
			logger.Warn("Redis event bus unavailable, using in-memory event bus", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil, nil
		}
		return bus, closerFunc(func() error {
			return errors.Join(bus.Close(), client.Close())
		}), nil

	case "kafka":
		if cfg.Kafka == nil || strings.TrimSpace(cfg.Kafka.Brokers) == "" {
			return nil, nil, errors.New("event bus driver kafka requires KAFKA_BROKERS")
		}
		bus, err := infra_eventbus.NewWithKafka(cfg.Kafka.Brokers, logger, &infra_eventbus.KafkaEventBusConfig{
			GroupID:      cfg.Kafka.GroupID,
			TopicPrefix:  cfg.Kafka.TopicPrefix,
			SASLUsername: cfg.Kafka.SASLUsername,
			SASLPassword: cfg.Kafka.SASLPassword,
		})
		if err != nil {
			logger.Warn("Kafka unreachable, using in-memory event bus", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil, nil
		}
		return bus, bus, nil
	}
	return nil, nil, fmt.Errorf("unknown event bus driver %q", driver)
}

func newRedisClient(url string, cfg *config.Redis) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if cfg == nil {
		return lock.NewRedisClient(ctx, url, 0, 0, 0, 0)
	}
	return lock.NewRedisClient(ctx, url, cfg.PoolSize, cfg.DialTimeout, cfg.ReadTimeout, cfg.WriteTimeout)
}

func redisPrefix(cfg *config.Redis) string {
	if cfg == nil || cfg.KeyPrefix == "" {
		return "ledger:"
	}
	return cfg.KeyPrefix
}
