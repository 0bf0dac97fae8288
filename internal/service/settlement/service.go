package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/homeserve/internal/metrics"
)

// Service сверяет входящие уведомления шлюза с состоянием платежа.
// Уведомления приходят at-least-once и недоверенные: каждое действие
// с эффектом выполняется не более одного раза (ключ — transaction id),
// а статус и сумма перепроверяются повторным запросом к шлюзу.
type Service struct {
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	slog     domain.SettlementLogRepository
	outbox   domain.OutboxRepository
	gateway  domain.SettlementGateway
	locker   domain.Locker

	logger  *log.Entry
	metrics *metrics.LifecycleMetrics
	now     func() time.Time
}

// Options задаёт параметры сервиса сверки.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.LifecycleMetrics
	Now     func() time.Time
}

// NewService создаёт сервис сверки расчётов.
func NewService(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	slog domain.SettlementLogRepository,
	outbox domain.OutboxRepository,
	gateway domain.SettlementGateway,
	locker domain.Locker,
	opts Options,
) *Service {
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "settlement")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		orders:   orders,
		payments: payments,
		slog:     slog,
		outbox:   outbox,
		gateway:  gateway,
		locker:   locker,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

// Notification — уведомление шлюза о платеже. Raw — тело запроса как
// пришло по сети; оно без изменений попадает в журнал расчётов.
type Notification struct {
	TransactionID string
	CorrelationID string
	Raw           []byte
}

// Result описывает исход обработки уведомления.
type Result struct {
	PaymentID string
	OrderID   string
	Status    domain.PaymentState
	Duplicate bool
}

// HandleNotification обрабатывает уведомление шлюза о завершении оплаты.
// Дубликат (платёж уже рассчитан) — успешный no-op; любые эффекты
// выполняются под блокировкой заказов клиента — той же, под которой идёт
// оформление, поэтому сверка и компенсация чекаута взаимно исключены.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (Result, error) {
	start := s.now()
	s.metrics.RecordNotificationReceived()
	defer func() {
		s.metrics.RecordReconcileDuration(time.Since(start))
	}()

	if n.TransactionID == "" {
		s.metrics.RecordNotificationInvalid()
		return Result{}, domain.ErrTransactionIDRequired
	}

	payment, err := s.payments.GetByTransactionID(n.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			s.metrics.RecordNotificationInvalid()
			s.logger.WithField("tran_id", n.TransactionID).Warn("notification for unknown transaction")
		}
		return Result{}, err
	}

	// Факт получения фиксируется всегда, включая дубликаты: журнал —
	// аудиторский след доставки, а не только эффектов. В запись идёт
	// сырое тело уведомления.
	s.appendLog(payment.ID, domain.LogNotificationReceived, payloadOrJSON(n.Raw, map[string]any{
		"tran_id": n.TransactionID,
		"val_id":  n.CorrelationID,
	}))

	order, err := s.orders.Get(payment.OrderID)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = s.locker.WithLock(ctx, domain.CustomerOrderLockKey(order.CustomerID), func() error {
		// Перечитываем под блокировкой: параллельная доставка того же
		// уведомления могла уже завершить расчёт, а заказ — измениться.
		payment, err = s.payments.Get(payment.ID)
		if err != nil {
			return err
		}
		if payment.Status.Settled() {
			s.metrics.RecordNotificationDuplicate()
			result = Result{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				Status:    payment.Status,
				Duplicate: true,
			}
			return nil
		}
		order, err = s.orders.Get(payment.OrderID)
		if err != nil {
			return err
		}

		result, err = s.reconcile(ctx, payment, order, n)
		return err
	})
	if err != nil {
		s.metrics.RecordReconcileFailed()
		return Result{}, err
	}
	if !result.Duplicate {
		s.metrics.RecordReconcileCompleted()
	}
	return result, nil
}

// reconcile выполняет сверку нерассчитанного платежа: повторная валидация
// у шлюза, точное сравнение транзакции и суммы, перевод платежа и заказа.
// Вызывается только под блокировкой.
func (s *Service) reconcile(ctx context.Context, payment domain.Payment, order domain.Order, n Notification) (Result, error) {
	validation, err := s.gateway.Validate(ctx, n.CorrelationID)
	if err != nil {
		// Недоступность шлюза — транзиентный сбой: состояние не меняем,
		// следующая доставка того же уведомления повторит сверку.
		s.logger.WithError(err).WithField("tran_id", n.TransactionID).Warn("gateway validation unavailable")
		return Result{}, err
	}

	if !validationAccepted(validation.Status) {
		s.appendLog(payment.ID, domain.LogValidationFailed, payloadOrJSON(validation.Raw, map[string]any{
			"tran_id": n.TransactionID,
			"val_id":  n.CorrelationID,
			"status":  validation.Status,
		}))
		s.metrics.RecordNotificationInvalid()
		return Result{}, s.failPayment(payment, fmt.Errorf("gateway reported status %q: %w", validation.Status, domain.ErrGatewayRejected))
	}

	// Ответ шлюза обязан относиться к той же транзакции: совпадение суммы
	// при чужом transaction id ничего не подтверждает.
	if validation.TransactionID != "" && validation.TransactionID != payment.TransactionID {
		s.appendLog(payment.ID, domain.LogValidationFailed, payloadOrJSON(validation.Raw, map[string]any{
			"tran_id":           n.TransactionID,
			"val_id":            n.CorrelationID,
			"validated_tran_id": validation.TransactionID,
		}))
		s.metrics.RecordNotificationInvalid()
		s.logger.WithFields(log.Fields{
			"tran_id":           payment.TransactionID,
			"validated_tran_id": validation.TransactionID,
		}).Error("settlement transaction mismatch")
		if err := s.failPayment(payment, domain.ErrTransactionMismatch); err != nil {
			return Result{}, err
		}
		return Result{}, domain.ErrTransactionMismatch
	}

	// Сумма сверяется точно, в decimal: любое расхождение с суммой,
	// зафиксированной при создании сессии, — жёсткий отказ.
	if !validation.Amount.Equal(payment.Amount) || (validation.Currency != "" && validation.Currency != payment.Currency) {
		s.appendLog(payment.ID, domain.LogValidationFailed, payloadOrJSON(validation.Raw, map[string]any{
			"tran_id":  n.TransactionID,
			"val_id":   n.CorrelationID,
			"expected": payment.Amount.StringFixed(2),
			"actual":   validation.Amount.StringFixed(2),
			"currency": validation.Currency,
		}))
		s.metrics.RecordNotificationInvalid()
		s.logger.WithFields(log.Fields{
			"tran_id":  n.TransactionID,
			"expected": payment.Amount.StringFixed(2),
			"actual":   validation.Amount.StringFixed(2),
		}).Error("settlement amount mismatch")
		if err := s.failPayment(payment, domain.ErrAmountMismatch); err != nil {
			return Result{}, err
		}
		return Result{}, domain.ErrAmountMismatch
	}

	return s.confirm(payment, order, n, validation)
}

// confirm переводит платёж в completed, а заказ — в paid/confirmed.
// Оба перехода заказа сначала проверяются на копии: при отказе таблицы
// ничего не сохраняется, платёж остаётся нерассчитанным и следующая
// доставка уведомления снова упрётся в тот же конфликт, а не в «дубликат».
func (s *Service) confirm(payment domain.Payment, order domain.Order, n Notification, validation domain.ValidationResult) (Result, error) {
	now := s.now().UTC()

	// Сначала платёжная ось, затем фулфилмент. Отказ таблицы переходов
	// здесь означает рассинхронизацию заказа и платежа — это не no-op,
	// а инцидент целостности.
	if err := order.AttemptPayment(domain.PaymentStatusPaid); err != nil {
		return Result{}, s.integrityConflict(order, payment, err)
	}
	if err := order.AttemptFulfillment(domain.FulfillmentConfirmed); err != nil {
		return Result{}, s.integrityConflict(order, payment, err)
	}
	order.UpdatedAt = now

	// Correlation id фиксируется ровно один раз, при первом успешном расчёте.
	payment.Status = domain.PaymentStateCompleted
	if payment.CorrelationID == "" {
		payment.CorrelationID = n.CorrelationID
	}
	payment.UpdatedAt = now
	if err := s.payments.Save(payment); err != nil {
		return Result{}, err
	}

	s.appendLog(payment.ID, domain.LogValidationSucceeded, payloadOrJSON(validation.Raw, map[string]any{
		"tran_id": payment.TransactionID,
		"val_id":  payment.CorrelationID,
		"amount":  payment.Amount.StringFixed(2),
	}))

	if err := s.orders.Save(order); err != nil {
		return Result{}, err
	}

	s.enqueueEvent(kafka.EventTypePaymentConfirmed, order, map[string]any{
		"tran_id": payment.TransactionID,
		"amount":  payment.Amount.StringFixed(2),
	})
	s.enqueueEvent(kafka.EventTypeOrderConfirmed, order, nil)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"tran_id":  payment.TransactionID,
		"amount":   payment.Amount.StringFixed(2),
	}).Info("payment settled, order confirmed")

	return Result{PaymentID: payment.ID, OrderID: order.ID, Status: payment.Status}, nil
}

// failPayment помечает платёж failed и публикует событие.
func (s *Service) failPayment(payment domain.Payment, cause error) error {
	payment.Status = domain.PaymentStateFailed
	payment.UpdatedAt = s.now().UTC()
	if err := s.payments.Save(payment); err != nil {
		return err
	}
	if order, err := s.orders.Get(payment.OrderID); err == nil {
		s.enqueueEvent(kafka.EventTypePaymentFailed, order, map[string]any{
			"tran_id": payment.TransactionID,
			"reason":  cause.Error(),
		})
	}
	return cause
}

func (s *Service) integrityConflict(order domain.Order, payment domain.Payment, cause error) error {
	s.logger.WithError(cause).WithFields(log.Fields{
		"order_id":           order.ID,
		"tran_id":            payment.TransactionID,
		"fulfillment_status": order.FulfillmentStatus,
		"payment_status":     order.PaymentStatus,
	}).Error("settled payment refers to order in incompatible state")
	return fmt.Errorf("order %s refused transition after settlement: %w", order.ID, domain.ErrReconcileConflict)
}

// appendLog пишет запись журнала расчётов; журнал append-only, сбой записи
// логируется, но не срывает сверку.
func (s *Service) appendLog(paymentID string, kind domain.SettlementLogKind, payload []byte) {
	entry := domain.SettlementLogEntry{
		ID:        uuid.NewString(),
		PaymentID: paymentID,
		Kind:      kind,
		Payload:   payload,
		Occurred:  s.now().UTC(),
	}
	if err := s.slog.Append(entry); err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID).Error("failed to append settlement log")
	}
}

// payloadOrJSON отдаёт сырой payload как есть; если его нет (внутренний
// вызов без тела), запись собирается из структурированных полей.
func payloadOrJSON(raw []byte, fallback map[string]any) []byte {
	if len(raw) > 0 {
		return raw
	}
	b, _ := json.Marshal(fallback)
	return b
}

func (s *Service) enqueueEvent(eventType kafka.EventType, order domain.Order, metadata map[string]any) {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, order.Reference, metadata)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal order event")
		return
	}
	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue notification event")
	}
}

func validationAccepted(status string) bool {
	return status == "VALID" || status == "VALIDATED"
}
