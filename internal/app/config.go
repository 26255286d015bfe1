package app

import (
	"os"
	"strings"
	"time"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес JSON API.
	HTTPAddr string
	// MetricsAddr — адрес служебного HTTP: /metrics и health probes.
	MetricsAddr string
	// PostgresDSN — строка подключения к PostgreSQL; пустая строка
	// включает in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пустая строка
	// отключает публикацию событий.
	KafkaBrokers string
	// OutboxPollInterval — период опроса transactional outbox.
	OutboxPollInterval time.Duration
	// IdempotencyCleanupInterval — период удаления протухших
	// idempotency-ключей.
	IdempotencyCleanupInterval time.Duration
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                   ":8080",
		MetricsAddr:                ":9090",
		OutboxPollInterval:         time.Second,
		IdempotencyCleanupInterval: 10 * time.Minute,
	}
}

// FromEnv строит конфигурацию из переменных окружения поверх значений
// по умолчанию.
func FromEnv() Config {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("BOOKSHOP_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("BOOKSHOP_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("BOOKSHOP_PG_DSN")); v != "" {
		cfg.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := strings.TrimSpace(os.Getenv("BOOKSHOP_OUTBOX_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.OutboxPollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOOKSHOP_IDEMPOTENCY_CLEANUP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.IdempotencyCleanupInterval = d
		}
	}
	return cfg
}
