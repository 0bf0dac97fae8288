package memory_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/storage/memory"
)

func TestSettlementLogAppendOrder(t *testing.T) {
	repo := memory.NewSettlementLogRepository()
	base := time.Now().UTC()

	// Записи приходят не по порядку, журнал обязан вернуть хронологию.
	entries := []domain.SettlementLogEntry{
		{ID: "log-2", PaymentID: "pay-1", Kind: domain.LogNotificationReceived, Occurred: base.Add(time.Second)},
		{ID: "log-1", PaymentID: "pay-1", Kind: domain.LogSessionCreated, Occurred: base},
		{ID: "log-3", PaymentID: "pay-1", Kind: domain.LogValidationSucceeded, Occurred: base.Add(2 * time.Second)},
	}
	for _, entry := range entries {
		if err := repo.Append(entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repo.ListByPayment("pay-1")
	if err != nil {
		t.Fatalf("ListByPayment: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	expected := []string{"log-1", "log-2", "log-3"}
	for i, id := range expected {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestSettlementLogIsolatedPerPayment(t *testing.T) {
	repo := memory.NewSettlementLogRepository()
	now := time.Now().UTC()
	_ = repo.Append(domain.SettlementLogEntry{ID: "log-1", PaymentID: "pay-1", Kind: domain.LogSessionCreated, Occurred: now})
	_ = repo.Append(domain.SettlementLogEntry{ID: "log-2", PaymentID: "pay-2", Kind: domain.LogSessionFailed, Occurred: now})

	got, err := repo.ListByPayment("pay-1")
	if err != nil {
		t.Fatalf("ListByPayment: %v", err)
	}
	if len(got) != 1 || got[0].ID != "log-1" {
		t.Fatalf("unexpected entries: %+v", got)
	}

	empty, err := repo.ListByPayment("pay-404")
	if err != nil {
		t.Fatalf("ListByPayment empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no entries, got %+v", empty)
	}
}
