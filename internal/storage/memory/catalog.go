package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

// Catalog — статический каталог услуг для dev-режима и тестов. Боевой
// каталог — отдельный сервис за портом domain.CatalogService.
type Catalog struct {
	mu       sync.RWMutex
	services map[string]domain.ServiceInfo
}

// NewCatalog создаёт каталог с заданным набором услуг.
func NewCatalog(services ...domain.ServiceInfo) *Catalog {
	c := &Catalog{services: make(map[string]domain.ServiceInfo, len(services))}
	for _, s := range services {
		c.services[s.ServiceID] = s
	}
	return c
}

// Service возвращает снимок услуги по идентификатору.
func (c *Catalog) Service(_ context.Context, serviceID string) (domain.ServiceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.services[serviceID]
	if !ok {
		return domain.ServiceInfo{}, domain.ErrServiceNotFound
	}
	return info, nil
}

// Upsert добавляет или обновляет услугу.
func (c *Catalog) Upsert(info domain.ServiceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[info.ServiceID] = info
}
