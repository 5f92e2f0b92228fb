package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	pgstore "github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// Dependencies содержит хранилища, выбранные по конфигурации.
type Dependencies struct {
	Catalog     domain.ProductCatalog
	GuestCarts  domain.CartRepository
	AccountCart domain.CartRepository
	Ledger      domain.OrderLedger
	MergeLedger domain.MergeLedger
	OutboxRepo  domain.OutboxRepository

	pg    *pgstore.Store
	redis *redis.Client
}

// Close освобождает подключения к внешним хранилищам.
func (d *Dependencies) Close(logger *log.Entry) {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.pg != nil {
		if err := d.pg.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}

// PostgresStore возвращает подключение к postgres или nil.
func (d *Dependencies) PostgresStore() *pgstore.Store { return d.pg }

// RedisClient возвращает redis-клиент или nil.
func (d *Dependencies) RedisClient() *redis.Client { return d.redis }

// newDependencies выбирает бэкенды: postgres и redis при наличии DSN/адреса,
// иначе in-memory. Смешанный режим (redis без postgres и наоборот) допустим.
func newDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	deps := &Dependencies{
		Catalog:     memory.NewCatalog(),
		GuestCarts:  memory.NewCartRepository(),
		AccountCart: memory.NewCartRepository(),
		Ledger:      memory.NewOrderLedger(),
		MergeLedger: memory.NewMergeLedger(),
		OutboxRepo:  memory.NewOutboxRepository(),
	}

	if cfg.PostgresDSN != "" {
		store, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}

		deps.pg = store
		deps.Catalog = pgstore.NewCatalog(store)
		deps.AccountCart = pgstore.NewCartRepository(store)
		deps.GuestCarts = pgstore.NewCartRepository(store)
		deps.Ledger = pgstore.NewOrderLedger(store)
		deps.MergeLedger = pgstore.NewMergeLedger(store)
		deps.OutboxRepo = pgstore.NewOutboxRepository(store)
		logger.Info("postgres storage initialized")
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			deps.Close(logger)
			return nil, fmt.Errorf("ping redis: %w", err)
		}

		deps.redis = client
		deps.GuestCarts = redisstore.NewCartRepository(client)
		logger.WithField("addr", cfg.RedisAddr).Info("redis guest cart storage initialized")
	}

	return deps, nil
}
