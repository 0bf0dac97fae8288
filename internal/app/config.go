package app

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config описывает настройки запуска сервиса маркетплейса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN пустой — работаем на in-memory хранилище (dev-режим).
	PostgresDSN string

	// KafkaBrokers пустой — события уведомлений остаются в outbox.
	KafkaBrokers string

	// GatewayBaseURL пустой — используется детерминированный mock шлюза.
	GatewayBaseURL    string
	GatewayStoreID    string
	GatewayPassword   string
	GatewayTimeout    time.Duration
	Currency          string
	TaxRate           decimal.Decimal
	CartTTL           time.Duration
	OutboxPollEvery   time.Duration
	OutboxBatchSize   int
	OutboxMaxAttempts int
}

// DefaultConfig возвращает конфигурацию с безопасными значениями dev-режима.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:          ":8080",
		MetricsAddr:       ":9090",
		GatewayTimeout:    10 * time.Second,
		Currency:          "BDT",
		TaxRate:           decimal.New(15, -2),
		CartTTL:           30 * time.Minute,
		OutboxPollEvery:   2 * time.Second,
		OutboxBatchSize:   50,
		OutboxMaxAttempts: 5,
	}
}

// ReadConfig собирает конфигурацию из переменных окружения поверх значений
// по умолчанию.
func ReadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("HOMESERVE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("HOMESERVE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("HOMESERVE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("HOMESERVE_GATEWAY_URL"); v != "" {
		cfg.GatewayBaseURL = v
	}
	if v := os.Getenv("HOMESERVE_GATEWAY_STORE_ID"); v != "" {
		cfg.GatewayStoreID = v
	}
	if v := os.Getenv("HOMESERVE_GATEWAY_PASSWORD"); v != "" {
		cfg.GatewayPassword = v
	}
	if v := os.Getenv("HOMESERVE_CURRENCY"); v != "" {
		cfg.Currency = v
	}
	if v := os.Getenv("HOMESERVE_TAX_RATE"); v != "" {
		if rate, err := decimal.NewFromString(v); err == nil && !rate.IsNegative() {
			cfg.TaxRate = rate
		}
	}
	if v := os.Getenv("HOMESERVE_GATEWAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GatewayTimeout = d
		}
	}
	if v := os.Getenv("HOMESERVE_CART_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CartTTL = d
		}
	}
	if v := os.Getenv("HOMESERVE_OUTBOX_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.OutboxPollEvery = d
		}
	}
	if v := os.Getenv("HOMESERVE_OUTBOX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OutboxBatchSize = n
		}
	}
	if v := os.Getenv("HOMESERVE_OUTBOX_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OutboxMaxAttempts = n
		}
	}
	return cfg
}
