package cache

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

const defaultTTL = 30 * time.Minute

// CartCache — in-process кэш корзин с ограниченным TTL. Записи независимы
// по клиентам и не конкурируют между собой; протухшие записи вычищаются
// лениво при чтении и фоновым обходом при записи.
type CartCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedCart
	now     func() time.Time
}

type cachedCart struct {
	entries   []domain.CartEntry
	expiresAt time.Time
}

// New создаёт кэш корзин; ttl<=0 заменяется значением по умолчанию.
func New(ttl time.Duration) *CartCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CartCache{
		ttl:     ttl,
		entries: make(map[string]cachedCart),
		now:     time.Now,
	}
}

// Get возвращает корзину клиента, если запись жива.
func (c *CartCache) Get(customerID string) ([]domain.CartEntry, bool) {
	c.mu.RLock()
	cached, ok := c.entries[customerID]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(cached.expiresAt) {
		c.mu.Lock()
		delete(c.entries, customerID)
		c.mu.Unlock()
		return nil, false
	}

	// Копия, чтобы вызывающий не мутировал кэшированный срез.
	result := make([]domain.CartEntry, len(cached.entries))
	copy(result, cached.entries)
	return result, true
}

// Put сохраняет корзину клиента, продлевая TTL.
func (c *CartCache) Put(customerID string, entries []domain.CartEntry) {
	stored := make([]domain.CartEntry, len(entries))
	copy(stored, entries)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[customerID] = cachedCart{entries: stored, expiresAt: now.Add(c.ttl)}
	for key, cached := range c.entries {
		if now.After(cached.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Delete убирает корзину клиента из кэша.
func (c *CartCache) Delete(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, customerID)
}

var _ domain.CartCache = (*CartCache)(nil)
