package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

func TestCartFromItemsSortedByService(t *testing.T) {
	now := time.Now().UTC()
	items := []domain.LineItem{
		{ID: "i-2", ServiceID: "svc-plumbing", ServiceName: "Plumbing", Qty: 1, UnitPrice: dec("120.50"), CreatedAt: now},
		{ID: "i-1", ServiceID: "svc-cleaning", ServiceName: "Cleaning", Qty: 2, UnitPrice: dec("50.00"), CreatedAt: now},
	}

	entries := domain.CartFromItems(items)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ServiceID != "svc-cleaning" || entries[1].ServiceID != "svc-plumbing" {
		t.Fatalf("entries must be sorted by service id: %+v", entries)
	}
}

func TestCartRoundTripPreservesLogicalView(t *testing.T) {
	now := time.Now().UTC()
	original := []domain.CartEntry{
		{ServiceID: "svc-cleaning", ServiceName: "Cleaning", Qty: 2, UnitPrice: dec("50.00")},
		{ServiceID: "svc-plumbing", ServiceName: "Plumbing", Qty: 1, UnitPrice: dec("120.50")},
	}

	items := domain.ItemsFromCart(original, now)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == "" {
			t.Fatal("materialized items must carry generated ids")
		}
		if !item.CreatedAt.Equal(now) {
			t.Fatalf("unexpected CreatedAt: %s", item.CreatedAt)
		}
	}

	back := domain.CartFromItems(items)
	if len(back) != len(original) {
		t.Fatalf("expected %d entries, got %d", len(original), len(back))
	}
	for i := range back {
		if back[i].ServiceID != original[i].ServiceID ||
			back[i].Qty != original[i].Qty ||
			!back[i].UnitPrice.Equal(original[i].UnitPrice) {
			t.Fatalf("round trip changed entry %d: %+v vs %+v", i, back[i], original[i])
		}
	}
}
