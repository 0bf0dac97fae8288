package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/storage/memory"
)

func newOrder(t *testing.T, customerID string, now time.Time) domain.Order {
	t.Helper()
	order, err := domain.NewDraftOrder(customerID, "BDT", domain.DefaultTaxRate(), now)
	if err != nil {
		t.Fatalf("NewDraftOrder: %v", err)
	}
	return order
}

func TestOrderRepositoryCreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t, "customer-1", time.Now().UTC())

	if err := repo.Create(order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != order.ID || got.CustomerID != "customer-1" {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepositoryFindDraftByCustomer(t *testing.T) {
	repo := memory.NewOrderRepository()
	now := time.Now().UTC()

	if _, err := repo.FindDraftByCustomer("customer-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	// Оформленный заказ черновиком не считается.
	settled := newOrder(t, "customer-1", now)
	if err := settled.AttemptFulfillment(domain.FulfillmentPending); err != nil {
		t.Fatalf("to pending: %v", err)
	}
	if err := repo.Create(settled); err != nil {
		t.Fatalf("Create settled: %v", err)
	}
	if _, err := repo.FindDraftByCustomer("customer-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("pending order must not be returned as draft, got %v", err)
	}

	draft := newOrder(t, "customer-1", now.Add(time.Second))
	if err := repo.Create(draft); err != nil {
		t.Fatalf("Create draft: %v", err)
	}

	got, err := repo.FindDraftByCustomer("customer-1")
	if err != nil {
		t.Fatalf("FindDraftByCustomer: %v", err)
	}
	if got.ID != draft.ID {
		t.Fatalf("expected draft %s, got %s", draft.ID, got.ID)
	}
}

func TestOrderRepositorySaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t, "customer-1", time.Now().UTC())
	if err := repo.Create(order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Save(order); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	// Копия со старой версией должна быть отвергнута.
	if err := repo.Save(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict, got %v", err)
	}

	fresh, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := repo.Save(fresh); err != nil {
		t.Fatalf("Save with fresh version: %v", err)
	}
}

func TestOrderRepositoryIsolation(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t, "customer-1", time.Now().UTC())
	if err := order.AddItem("svc-1", "Home Cleaning", 1, decimal.New(5000, -2), time.Now().UTC()); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := repo.Create(order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Items[0].Qty = 42

	again, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again.Items[0].Qty != 1 {
		t.Fatalf("stored order mutated through returned copy: %+v", again.Items[0])
	}
}
