package app

import (
	"os"
	"time"
)

// Config описывает настройки запуска сервиса корзины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN пустой — каталог, заказы и outbox живут в памяти.
	PostgresDSN string
	// RedisAddr пустой — гостевые корзины хранятся там же, где аккаунтные.
	RedisAddr     string
	RedisPassword string

	// KafkaBrokers пустой — события outbox не публикуются наружу.
	KafkaBrokers string

	JWTSecret string

	OutboxPollInterval time.Duration
	// OutboxBacklogThreshold — порог degraded для health-проверки очереди.
	OutboxBacklogThreshold int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:               ":8080",
		MetricsAddr:            ":9090",
		JWTSecret:              "dev-secret",
		OutboxPollInterval:     2 * time.Second,
		OutboxBacklogThreshold: 1000,
	}
}

// ConfigFromEnv строит конфигурацию из переменных окружения поверх дефолтов.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CART_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CART_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("CART_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("CART_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CART_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("CART_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("CART_OUTBOX_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.OutboxPollInterval = d
		}
	}

	return cfg
}
