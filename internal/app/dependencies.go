package app

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/gateway"
	"github.com/vladislavdragonenkov/homeserve/internal/storage/memory"
	"github.com/vladislavdragonenkov/homeserve/internal/storage/postgres"
)

// Dependencies содержит хранилище и внешние порты приложения.
type Dependencies struct {
	Orders   domain.OrderRepository
	Payments domain.PaymentRepository
	SlogRepo domain.SettlementLogRepository
	Outbox   domain.OutboxRepository
	Locker   domain.Locker
	Catalog  domain.CatalogService
	Gateway  domain.SettlementGateway

	store *postgres.Store
}

// NewDependencies собирает зависимости согласно конфигурации: PostgreSQL
// при заданном DSN, иначе in-memory хранилище для dev-режима. Каталог в
// обоих режимах статический: боевой каталог — внешний сервис.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	deps := &Dependencies{Catalog: devCatalog()}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		deps.store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Payments = postgres.NewPaymentRepository(store)
		deps.SlogRepo = postgres.NewSettlementLogRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Locker = postgres.NewLocker(store)
		logger.Info("postgres storage initialized")
	} else {
		deps.Orders = memory.NewOrderRepository()
		deps.Payments = memory.NewPaymentRepository()
		deps.SlogRepo = memory.NewSettlementLogRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Locker = memory.NewLocker()
		logger.Warn("no postgres DSN configured, using in-memory storage")
	}

	if cfg.GatewayBaseURL != "" {
		deps.Gateway = gateway.NewClient(gateway.Config{
			BaseURL:        cfg.GatewayBaseURL,
			StoreID:        cfg.GatewayStoreID,
			StorePassword:  cfg.GatewayPassword,
			RequestTimeout: cfg.GatewayTimeout,
		}, logger.WithField("component", "gateway"))
		logger.WithField("base_url", cfg.GatewayBaseURL).Info("settlement gateway client initialized")
	} else {
		deps.Gateway = gateway.NewMockGateway()
		logger.Warn("no gateway URL configured, using mock settlement gateway")
	}

	return deps, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// devCatalog — статический набор услуг для dev-режима и демо.
func devCatalog() domain.CatalogService {
	return memory.NewCatalog(
		domain.ServiceInfo{ServiceID: "svc-cleaning", Name: "Home Cleaning", UnitPrice: decimal.New(5000, -2), Active: true},
		domain.ServiceInfo{ServiceID: "svc-plumbing", Name: "Plumbing Repair", UnitPrice: decimal.New(12050, -2), Active: true},
		domain.ServiceInfo{ServiceID: "svc-electric", Name: "Electrical Works", UnitPrice: decimal.New(9990, -2), Active: true},
		domain.ServiceInfo{ServiceID: "svc-painting", Name: "Wall Painting", UnitPrice: decimal.New(35000, -2), Active: false},
	)
}
