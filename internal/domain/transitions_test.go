package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

func TestCanTransitionFulfillment(t *testing.T) {
	cases := []struct {
		from    domain.FulfillmentStatus
		to      domain.FulfillmentStatus
		allowed bool
	}{
		{domain.FulfillmentDraft, domain.FulfillmentPending, true},
		{domain.FulfillmentDraft, domain.FulfillmentCancelled, true},
		{domain.FulfillmentDraft, domain.FulfillmentConfirmed, false},
		{domain.FulfillmentPending, domain.FulfillmentConfirmed, true},
		{domain.FulfillmentPending, domain.FulfillmentProcessing, true},
		{domain.FulfillmentPending, domain.FulfillmentDraft, false},
		{domain.FulfillmentConfirmed, domain.FulfillmentProcessing, true},
		{domain.FulfillmentConfirmed, domain.FulfillmentCancelled, false},
		{domain.FulfillmentProcessing, domain.FulfillmentCompleted, true},
		{domain.FulfillmentProcessing, domain.FulfillmentOnHold, true},
		{domain.FulfillmentOnHold, domain.FulfillmentProcessing, true},
		{domain.FulfillmentCompleted, domain.FulfillmentRefunded, true},
		{domain.FulfillmentCompleted, domain.FulfillmentDisputed, true},
		{domain.FulfillmentRefunded, domain.FulfillmentDisputed, true},
		{domain.FulfillmentCancelled, domain.FulfillmentDraft, false},
		{domain.FulfillmentCancelled, domain.FulfillmentPending, false},
		{domain.FulfillmentDisputed, domain.FulfillmentProcessing, false},
	}

	for _, tc := range cases {
		if got := domain.CanTransitionFulfillment(tc.from, tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestCanTransitionPayment(t *testing.T) {
	cases := []struct {
		from    domain.PaymentStatus
		to      domain.PaymentStatus
		allowed bool
	}{
		{domain.PaymentStatusUnpaid, domain.PaymentStatusPaid, true},
		{domain.PaymentStatusUnpaid, domain.PaymentStatusRefunded, false},
		{domain.PaymentStatusPaid, domain.PaymentStatusRefunded, true},
		{domain.PaymentStatusPaid, domain.PaymentStatusPartiallyRefunded, true},
		{domain.PaymentStatusPaid, domain.PaymentStatusDisputed, true},
		{domain.PaymentStatusPaid, domain.PaymentStatusUnpaid, false},
		{domain.PaymentStatusPartiallyRefunded, domain.PaymentStatusDisputed, true},
		{domain.PaymentStatusRefunded, domain.PaymentStatusPaid, false},
		{domain.PaymentStatusDisputed, domain.PaymentStatusPaid, false},
	}

	for _, tc := range cases {
		if got := domain.CanTransitionPayment(tc.from, tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestAttemptTransitionRefusedLeavesOrderUntouched(t *testing.T) {
	order := makeDraftOrder(t)
	if err := order.AttemptFulfillment(domain.FulfillmentPending); err != nil {
		t.Fatalf("draft -> pending must be allowed: %v", err)
	}

	before := order
	if err := order.AttemptFulfillment(domain.FulfillmentCompleted); !errors.Is(err, domain.ErrTransitionRefused) {
		t.Fatalf("expected ErrTransitionRefused, got %v", err)
	}
	if order.FulfillmentStatus != before.FulfillmentStatus || order.PaymentStatus != before.PaymentStatus {
		t.Fatalf("refused transition mutated order: %+v", order)
	}
	if err := order.AttemptPayment(domain.PaymentStatusRefunded); !errors.Is(err, domain.ErrTransitionRefused) {
		t.Fatalf("expected ErrTransitionRefused, got %v", err)
	}
	if order.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("refused payment transition mutated axis: %s", order.PaymentStatus)
	}
}

func TestAttemptTransitionUnknownAxis(t *testing.T) {
	order := makeDraftOrder(t)
	if err := order.AttemptTransition(domain.Axis("inventory"), "pending"); !errors.Is(err, domain.ErrTransitionRefused) {
		t.Fatalf("expected ErrTransitionRefused for unknown axis, got %v", err)
	}
}

func TestRevertToDraft(t *testing.T) {
	order := makeDraftOrder(t)
	if err := order.RevertToDraft(); !errors.Is(err, domain.ErrTransitionRefused) {
		t.Fatalf("revert from draft must be refused, got %v", err)
	}

	if err := order.AttemptFulfillment(domain.FulfillmentPending); err != nil {
		t.Fatalf("draft -> pending: %v", err)
	}
	if err := order.RevertToDraft(); err != nil {
		t.Fatalf("revert from pending: %v", err)
	}
	if order.FulfillmentStatus != domain.FulfillmentDraft {
		t.Fatalf("expected draft after revert, got %s", order.FulfillmentStatus)
	}

	// Из confirmed компенсация недоступна.
	order.FulfillmentStatus = domain.FulfillmentConfirmed
	if err := order.RevertToDraft(); !errors.Is(err, domain.ErrTransitionRefused) {
		t.Fatalf("revert from confirmed must be refused, got %v", err)
	}
}
