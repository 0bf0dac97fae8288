package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/service/settlement"
	"github.com/vladislavdragonenkov/homeserve/internal/storage/memory"
)

// stubGateway управляет исходом повторной валидации.
type stubGateway struct {
	mu          sync.Mutex
	validateErr error
	result      domain.ValidationResult
	validateCnt int
}

func (s *stubGateway) CreateSession(context.Context, domain.SessionRequest) (domain.Session, error) {
	return domain.Session{}, errors.New("not used")
}

func (s *stubGateway) Validate(_ context.Context, _ string) (domain.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validateCnt++
	if s.validateErr != nil {
		return domain.ValidationResult{}, s.validateErr
	}
	return s.result, nil
}

type env struct {
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	slog     domain.SettlementLogRepository
	outbox   domain.OutboxRepository
	gateway  *stubGateway
	svc      *settlement.Service

	order   domain.Order
	payment domain.Payment
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logrus.NewEntry(logger)
}

// newEnv готовит pending заказ с платежом, ждущим уведомления шлюза.
func newEnv(t *testing.T) *env {
	t.Helper()
	now := time.Now().UTC()

	order, err := domain.NewDraftOrder("customer-1", "BDT", domain.DefaultTaxRate(), now)
	require.NoError(t, err)
	require.NoError(t, order.AddItem("svc-cleaning", "Home Cleaning", 2, decimal.New(5000, -2), now))
	require.NoError(t, order.AttemptFulfillment(domain.FulfillmentPending))

	payment := domain.Payment{
		ID:            "pay-1",
		OrderID:       order.ID,
		TransactionID: "txn-1",
		Amount:        order.Total,
		Currency:      "BDT",
		Status:        domain.PaymentStatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	e := &env{
		orders:   memory.NewOrderRepository(),
		payments: memory.NewPaymentRepository(),
		slog:     memory.NewSettlementLogRepository(),
		outbox:   memory.NewOutboxRepository(),
		gateway: &stubGateway{result: domain.ValidationResult{
			Status:        "VALID",
			TransactionID: "txn-1",
			CorrelationID: "val-1",
			Amount:        order.Total,
			Currency:      "BDT",
		}},
		order:   order,
		payment: payment,
	}
	require.NoError(t, e.orders.Create(order))
	require.NoError(t, e.payments.Create(payment))

	e.svc = settlement.NewService(
		e.orders, e.payments, e.slog, e.outbox, e.gateway, memory.NewLocker(),
		settlement.Options{Logger: loggerForTests().WithField("component", "settlement")},
	)
	return e
}

func notification() settlement.Notification {
	return settlement.Notification{TransactionID: "txn-1", CorrelationID: "val-1"}
}

func TestHandleNotificationConfirmsOrder(t *testing.T) {
	e := newEnv(t)

	result, err := e.svc.HandleNotification(context.Background(), notification())
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.Equal(t, domain.PaymentStateCompleted, result.Status)

	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStateCompleted, payment.Status)
	require.Equal(t, "val-1", payment.CorrelationID)

	order, err := e.orders.Get(e.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.FulfillmentConfirmed, order.FulfillmentStatus)
	require.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)

	entries, err := e.slog.ListByPayment("pay-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, domain.LogNotificationReceived, entries[0].Kind)
	require.Equal(t, domain.LogValidationSucceeded, entries[1].Kind)

	stats, err := e.outbox.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount) // payment.confirmed + order.confirmed
}

func TestHandleNotificationDuplicateIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.svc.HandleNotification(ctx, notification())
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := e.svc.HandleNotification(ctx, notification())
	require.NoError(t, err)
	require.True(t, second.Duplicate)
	require.Equal(t, domain.PaymentStateCompleted, second.Status)

	// Валидация у шлюза выполнена ровно один раз.
	require.Equal(t, 1, e.gateway.validateCnt)

	// Заказ подтверждён ровно один раз: повторных переходов не было.
	order, err := e.orders.Get(e.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.FulfillmentConfirmed, order.FulfillmentStatus)

	// Журнал видит оба уведомления: received, succeeded, received.
	entries, err := e.slog.ListByPayment("pay-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	received := 0
	for _, entry := range entries {
		if entry.Kind == domain.LogNotificationReceived {
			received++
		}
	}
	require.Equal(t, 2, received)
}

func TestHandleNotificationUnknownTransaction(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.HandleNotification(context.Background(), settlement.Notification{
		TransactionID: "txn-404",
		CorrelationID: "val-404",
	})
	require.ErrorIs(t, err, domain.ErrUnknownTransaction)

	// Платёж и заказ не тронуты.
	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatePending, payment.Status)
}

func TestHandleNotificationMissingTransactionID(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.HandleNotification(context.Background(), settlement.Notification{CorrelationID: "val-1"})
	require.ErrorIs(t, err, domain.ErrTransactionIDRequired)
}

func TestHandleNotificationAmountMismatch(t *testing.T) {
	e := newEnv(t)
	e.gateway.result.Amount = decimal.New(100, -2) // 1.00 вместо 115.00

	_, err := e.svc.HandleNotification(context.Background(), notification())
	require.ErrorIs(t, err, domain.ErrAmountMismatch)

	// Платёж failed, заказ никогда не станет paid от этого уведомления.
	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStateFailed, payment.Status)

	order, err := e.orders.Get(e.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)
	require.Equal(t, domain.FulfillmentPending, order.FulfillmentStatus)

	entries, err := e.slog.ListByPayment("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.LogValidationFailed, entries[len(entries)-1].Kind)
}

func TestHandleNotificationInvalidStatus(t *testing.T) {
	e := newEnv(t)
	e.gateway.result.Status = "INVALID"

	_, err := e.svc.HandleNotification(context.Background(), notification())
	require.ErrorIs(t, err, domain.ErrGatewayRejected)

	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStateFailed, payment.Status)
}

func TestHandleNotificationTransientGatewayFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.gateway.validateErr = domain.ErrGatewayUnavailable

	_, err := e.svc.HandleNotification(ctx, notification())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	// Состояние не изменилось: следующая доставка повторит сверку.
	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatePending, payment.Status)

	e.gateway.mu.Lock()
	e.gateway.validateErr = nil
	e.gateway.mu.Unlock()

	result, err := e.svc.HandleNotification(ctx, notification())
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.Equal(t, domain.PaymentStateCompleted, result.Status)
}

func TestHandleNotificationConcurrentDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const deliveries = 4
	var wg sync.WaitGroup
	results := make([]settlement.Result, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.svc.HandleNotification(ctx, notification())
		}(i)
	}
	wg.Wait()

	settled := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].Duplicate {
			settled++
		}
	}
	require.Equal(t, 1, settled, "settlement effects must apply exactly once")
	require.Equal(t, 1, e.gateway.validateCnt)

	order, err := e.orders.Get(e.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.FulfillmentConfirmed, order.FulfillmentStatus)
}

func TestHandleNotificationReconcileConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Ломаем согласованность: заказ отменён, платёж остался pending.
	order, err := e.orders.Get(e.order.ID)
	require.NoError(t, err)
	require.NoError(t, order.AttemptFulfillment(domain.FulfillmentCancelled))
	require.NoError(t, e.orders.Save(order))

	_, err = e.svc.HandleNotification(ctx, notification())
	require.ErrorIs(t, err, domain.ErrReconcileConflict)

	// Конфликт ничего не фиксирует: платёж не рассчитан, и повторная
	// доставка упирается в тот же конфликт, а не в «дубликат».
	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatePending, payment.Status)

	_, err = e.svc.HandleNotification(ctx, notification())
	require.ErrorIs(t, err, domain.ErrReconcileConflict)
}

func TestHandleNotificationTransactionMismatch(t *testing.T) {
	e := newEnv(t)
	// Шлюз вернул валидный ответ, но про другую транзакцию с той же суммой.
	e.gateway.result.TransactionID = "txn-other"

	_, err := e.svc.HandleNotification(context.Background(), notification())
	require.ErrorIs(t, err, domain.ErrTransactionMismatch)

	payment, err := e.payments.Get("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStateFailed, payment.Status)

	order, err := e.orders.Get(e.order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)

	entries, err := e.slog.ListByPayment("pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.LogValidationFailed, entries[len(entries)-1].Kind)
}

func TestSettlementLogStoresRawPayloads(t *testing.T) {
	e := newEnv(t)
	rawNotification := []byte("tran_id=txn-1&val_id=val-1&extra=as-sent")
	rawValidation := []byte(`{"status":"VALID","tran_id":"txn-1","amount":"115.00"}`)
	e.gateway.result.Raw = rawValidation

	n := notification()
	n.Raw = rawNotification
	_, err := e.svc.HandleNotification(context.Background(), n)
	require.NoError(t, err)

	// Журнал хранит тела как пришли по сети, без пересериализации.
	entries, err := e.slog.ListByPayment("pay-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, domain.LogNotificationReceived, entries[0].Kind)
	require.Equal(t, rawNotification, entries[0].Payload)
	require.Equal(t, domain.LogValidationSucceeded, entries[1].Kind)
	require.Equal(t, rawValidation, entries[1].Payload)
}
