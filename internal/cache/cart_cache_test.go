package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

func sampleCart() []domain.CartEntry {
	return []domain.CartEntry{
		{ServiceID: "svc-1", ServiceName: "Home Cleaning", Qty: 2, UnitPrice: decimal.New(5000, -2)},
	}
}

func TestCartCachePutGet(t *testing.T) {
	c := New(time.Minute)
	c.Put("customer-1", sampleCart())

	got, ok := c.Get("customer-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].ServiceID != "svc-1" || got[0].Qty != 2 {
		t.Fatalf("unexpected cart: %+v", got)
	}

	if _, ok := c.Get("customer-2"); ok {
		t.Fatal("expected miss for unknown customer")
	}
}

func TestCartCacheExpiry(t *testing.T) {
	current := time.Now()
	c := New(time.Minute)
	c.now = func() time.Time { return current }

	c.Put("customer-1", sampleCart())
	if _, ok := c.Get("customer-1"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(time.Minute + time.Second)
	if _, ok := c.Get("customer-1"); ok {
		t.Fatal("expected miss after TTL")
	}
	// Повторное чтение после ленивой очистки тоже промах.
	if _, ok := c.Get("customer-1"); ok {
		t.Fatal("expected entry to stay evicted")
	}
}

func TestCartCachePutRefreshesTTL(t *testing.T) {
	current := time.Now()
	c := New(time.Minute)
	c.now = func() time.Time { return current }

	c.Put("customer-1", sampleCart())
	current = current.Add(45 * time.Second)
	c.Put("customer-1", sampleCart())
	current = current.Add(45 * time.Second)

	if _, ok := c.Get("customer-1"); !ok {
		t.Fatal("expected hit, TTL must be refreshed on Put")
	}
}

func TestCartCacheDelete(t *testing.T) {
	c := New(time.Minute)
	c.Put("customer-1", sampleCart())
	c.Delete("customer-1")
	if _, ok := c.Get("customer-1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCartCacheReturnsCopies(t *testing.T) {
	c := New(time.Minute)
	c.Put("customer-1", sampleCart())

	got, _ := c.Get("customer-1")
	got[0].Qty = 99

	again, _ := c.Get("customer-1")
	if again[0].Qty != 2 {
		t.Fatalf("cache entry mutated through returned slice: %+v", again)
	}
}
