package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/storage/memory"
)

func newPayment(id, orderID, txnID string) domain.Payment {
	now := time.Now().UTC()
	return domain.Payment{
		ID:            id,
		OrderID:       orderID,
		TransactionID: txnID,
		Amount:        decimal.New(11500, -2),
		Currency:      "BDT",
		Status:        domain.PaymentStatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPaymentRepositoryCreateAndLookups(t *testing.T) {
	repo := memory.NewPaymentRepository()
	payment := newPayment("pay-1", "order-1", "txn-1")

	if err := repo.Create(payment); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := repo.Get("pay-1")
	if err != nil || byID.TransactionID != "txn-1" {
		t.Fatalf("Get: %v %+v", err, byID)
	}

	byTxn, err := repo.GetByTransactionID("txn-1")
	if err != nil || byTxn.ID != "pay-1" {
		t.Fatalf("GetByTransactionID: %v %+v", err, byTxn)
	}

	byOrder, err := repo.GetByOrderID("order-1")
	if err != nil || byOrder.ID != "pay-1" {
		t.Fatalf("GetByOrderID: %v %+v", err, byOrder)
	}

	if _, err := repo.GetByTransactionID("txn-404"); !errors.Is(err, domain.ErrUnknownTransaction) {
		t.Fatalf("expected ErrUnknownTransaction, got %v", err)
	}
}

func TestPaymentRepositoryCreateRequiresTransactionID(t *testing.T) {
	repo := memory.NewPaymentRepository()
	payment := newPayment("pay-1", "order-1", "")
	if err := repo.Create(payment); !errors.Is(err, domain.ErrTransactionIDRequired) {
		t.Fatalf("expected ErrTransactionIDRequired, got %v", err)
	}
}

func TestPaymentRepositoryTransactionIDUNIQUE(t *testing.T) {
	repo := memory.NewPaymentRepository()
	if err := repo.Create(newPayment("pay-1", "order-1", "txn-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(newPayment("pay-2", "order-2", "txn-1")); err == nil {
		t.Fatal("expected duplicate transaction_id to be rejected")
	}
}

func TestPaymentRepositorySaveVersionConflict(t *testing.T) {
	repo := memory.NewPaymentRepository()
	payment := newPayment("pay-1", "order-1", "txn-1")
	if err := repo.Create(payment); err != nil {
		t.Fatalf("Create: %v", err)
	}

	payment.Status = domain.PaymentStateCompleted
	if err := repo.Save(payment); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(payment); !errors.Is(err, domain.ErrPaymentVersionConflict) {
		t.Fatalf("expected ErrPaymentVersionConflict, got %v", err)
	}

	fresh, err := repo.Get("pay-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh.Status != domain.PaymentStateCompleted {
		t.Fatalf("expected completed, got %s", fresh.Status)
	}
}
