package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout = 5 * time.Second

	// Лимиты пула подобраны под нагрузку витрины: корзины дают много коротких
	// запросов, поэтому idle-соединения держатся наравне с открытыми.
	poolMaxOpen        = 25
	poolMaxIdle        = 25
	poolConnLifetime   = 30 * time.Minute
	poolConnIdleExpiry = 5 * time.Minute
)

// Store держит пул соединений с PostgreSQL, поверх которого работают
// репозитории каталога, корзин, заказов и outbox.
type Store struct {
	db *sql.DB
}

// Open создаёт пул, настраивает его и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	tunePool(db)

	if err := verify(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func tunePool(db *sql.DB) {
	db.SetMaxOpenConns(poolMaxOpen)
	db.SetMaxIdleConns(poolMaxIdle)
	db.SetConnMaxLifetime(poolConnLifetime)
	db.SetConnMaxIdleTime(poolConnIdleExpiry)
}

func verify(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// DB возвращает raw-пул для репозиториев.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность базы; используется readiness-пробой.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}
	return verify(ctx, s.db)
}

// EnsureSchema доводит схему до актуальной версии при старте сервиса.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
