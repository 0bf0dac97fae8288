package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.PostgresDSN != "" {
		t.Error("expected empty PostgresDSN by default (memory mode)")
	}
	if !cfg.TaxRate.Equal(decimal.New(15, -2)) {
		t.Errorf("expected default tax rate 0.15, got %s", cfg.TaxRate)
	}
	if cfg.CartTTL <= 0 {
		t.Error("expected positive CartTTL")
	}
	if cfg.OutboxPollEvery <= 0 || cfg.OutboxBatchSize <= 0 || cfg.OutboxMaxAttempts <= 0 {
		t.Error("expected positive outbox worker defaults")
	}
}

func TestReadConfigOverrides(t *testing.T) {
	t.Setenv("HOMESERVE_HTTP_ADDR", ":18080")
	t.Setenv("HOMESERVE_POSTGRES_DSN", "postgres://localhost/homeserve")
	t.Setenv("HOMESERVE_TAX_RATE", "0.20")
	t.Setenv("HOMESERVE_CART_TTL", "5m")
	t.Setenv("HOMESERVE_GATEWAY_TIMEOUT", "12s")
	t.Setenv("HOMESERVE_OUTBOX_MAX_ATTEMPTS", "7")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg := ReadConfig()

	if cfg.HTTPAddr != ":18080" {
		t.Errorf("expected overridden HTTPAddr, got %s", cfg.HTTPAddr)
	}
	if cfg.PostgresDSN != "postgres://localhost/homeserve" {
		t.Errorf("expected overridden DSN, got %s", cfg.PostgresDSN)
	}
	if !cfg.TaxRate.Equal(decimal.New(20, -2)) {
		t.Errorf("expected overridden tax rate, got %s", cfg.TaxRate)
	}
	if cfg.CartTTL != 5*time.Minute {
		t.Errorf("expected overridden cart TTL, got %s", cfg.CartTTL)
	}
	if cfg.GatewayTimeout != 12*time.Second {
		t.Errorf("expected overridden gateway timeout, got %s", cfg.GatewayTimeout)
	}
	if cfg.OutboxMaxAttempts != 7 {
		t.Errorf("expected overridden outbox max attempts, got %d", cfg.OutboxMaxAttempts)
	}
	if cfg.KafkaBrokers != "broker-1:9092,broker-2:9092" {
		t.Errorf("expected overridden brokers, got %s", cfg.KafkaBrokers)
	}
}

func TestReadConfigIgnoresInvalidValues(t *testing.T) {
	t.Setenv("HOMESERVE_TAX_RATE", "not-a-number")
	t.Setenv("HOMESERVE_CART_TTL", "-10m")

	cfg := ReadConfig()

	if !cfg.TaxRate.Equal(decimal.New(15, -2)) {
		t.Errorf("invalid tax rate must keep the default, got %s", cfg.TaxRate)
	}
	if cfg.CartTTL != DefaultConfig().CartTTL {
		t.Errorf("invalid TTL must keep the default, got %s", cfg.CartTTL)
	}
}
