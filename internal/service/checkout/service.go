package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/homeserve/internal/metrics"
)

// Service реализует корзину и оформление заказа: кэш-first чтение корзины,
// материализацию её в позиции черновика и конвертацию черновика в pending
// заказ с сессией оплаты у внешнего шлюза.
type Service struct {
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	slog     domain.SettlementLogRepository
	outbox   domain.OutboxRepository
	catalog  domain.CatalogService
	gateway  domain.SettlementGateway
	cache    domain.CartCache
	locker   domain.Locker

	currency string
	taxRate  domain.Calculator

	logger  *log.Entry
	metrics *metrics.LifecycleMetrics
	now     func() time.Time
}

// Options задаёт параметры сервиса оформления.
type Options struct {
	Currency string
	TaxRate  domain.Calculator
	Logger   *log.Entry
	Metrics  *metrics.LifecycleMetrics
	Now      func() time.Time
}

// NewService создаёт сервис корзины и оформления. Все клиенты внешних
// систем — явные зависимости; их жизненным циклом владеет композиционный
// корень процесса.
func NewService(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	slog domain.SettlementLogRepository,
	outbox domain.OutboxRepository,
	catalog domain.CatalogService,
	gateway domain.SettlementGateway,
	cache domain.CartCache,
	locker domain.Locker,
	opts Options,
) *Service {
	if opts.Currency == "" {
		opts.Currency = "BDT"
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "checkout")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		orders:   orders,
		payments: payments,
		slog:     slog,
		outbox:   outbox,
		catalog:  catalog,
		gateway:  gateway,
		cache:    cache,
		locker:   locker,
		currency: opts.Currency,
		taxRate:  opts.TaxRate,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

// CheckoutInput — реквизиты клиента, фиксируемые при оформлении.
type CheckoutInput struct {
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	PaymentMethod   string
	Kind            domain.OrderKind
	ScheduledFor    time.Time
}

// CheckoutResult возвращается при успешном оформлении.
type CheckoutResult struct {
	OrderID     string
	Reference   string
	RedirectURL string
}

// AddItem добавляет услугу в корзину клиента: снимает цену и название из
// каталога, дополняет черновик заказа и обновляет кэш.
func (s *Service) AddItem(ctx context.Context, customerID, serviceID string, qty int32) ([]domain.CartEntry, error) {
	if qty <= 0 {
		return nil, domain.ErrQuantityInvalid
	}

	info, err := s.catalog.Service(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !info.Active {
		return nil, domain.ErrServiceInactive
	}

	var entries []domain.CartEntry
	err = s.locker.WithLock(ctx, domain.CustomerOrderLockKey(customerID), func() error {
		order, err := s.draftFor(customerID)
		if err != nil {
			return err
		}
		if err := order.AddItem(info.ServiceID, info.Name, qty, info.UnitPrice, s.now().UTC()); err != nil {
			return err
		}
		if err := s.orders.Save(order); err != nil {
			return err
		}
		entries = domain.CartFromItems(order.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Put(customerID, entries)
	return entries, nil
}

// RemoveItem убирает услугу из корзины.
func (s *Service) RemoveItem(ctx context.Context, customerID, serviceID string) ([]domain.CartEntry, error) {
	var entries []domain.CartEntry
	err := s.locker.WithLock(ctx, domain.CustomerOrderLockKey(customerID), func() error {
		order, err := s.orders.FindDraftByCustomer(customerID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return domain.ErrCartItemNotFound
			}
			return err
		}
		if err := order.RemoveItem(serviceID, s.now().UTC()); err != nil {
			return err
		}
		if err := s.orders.Save(order); err != nil {
			return err
		}
		entries = domain.CartFromItems(order.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Put(customerID, entries)
	return entries, nil
}

// SetQuantity выставляет количество услуги в корзине.
func (s *Service) SetQuantity(ctx context.Context, customerID, serviceID string, qty int32) ([]domain.CartEntry, error) {
	if qty <= 0 {
		return nil, domain.ErrQuantityInvalid
	}

	var entries []domain.CartEntry
	err := s.locker.WithLock(ctx, domain.CustomerOrderLockKey(customerID), func() error {
		order, err := s.orders.FindDraftByCustomer(customerID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return domain.ErrCartItemNotFound
			}
			return err
		}
		if err := order.SetQuantity(serviceID, qty, s.now().UTC()); err != nil {
			return err
		}
		if err := s.orders.Save(order); err != nil {
			return err
		}
		entries = domain.CartFromItems(order.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Put(customerID, entries)
	return entries, nil
}

// Cart возвращает корзину клиента: сначала кэш, при промахе или
// недоступности — позиции персистентного черновика. Оба представления
// логически идентичны; после деградации кэш прогревается заново.
func (s *Service) Cart(ctx context.Context, customerID string) ([]domain.CartEntry, error) {
	if entries, ok := s.cache.Get(customerID); ok {
		s.metrics.RecordCartCacheHit()
		return entries, nil
	}
	s.metrics.RecordCartCacheMiss()

	order, err := s.orders.FindDraftByCustomer(customerID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return []domain.CartEntry{}, nil
		}
		return nil, err
	}

	entries := domain.CartFromItems(order.Items)
	s.cache.Put(customerID, entries)
	return entries, nil
}

// Checkout конвертирует корзину в pending заказ с сессией оплаты.
// Вся последовательность выполняется под блокировкой черновика клиента:
// конкурентное редактирование корзины или повторное оформление
// сериализуются, второй вызов увидит уже не-черновик и будет отклонён.
// Либо фиксируется согласованная пара (pending заказ + сессия), либо
// система остаётся ровно в исходном состоянии (черновик нетронут,
// платёж без сессии помечен failed).
func (s *Service) Checkout(ctx context.Context, customerID string, input CheckoutInput) (CheckoutResult, error) {
	start := s.now()
	s.metrics.RecordCheckoutStarted()
	defer func() {
		s.metrics.RecordCheckoutDuration(time.Since(start))
	}()

	var result CheckoutResult
	err := s.locker.WithLock(ctx, domain.CustomerOrderLockKey(customerID), func() error {
		order, err := s.orders.FindDraftByCustomer(customerID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return domain.ErrCartEmpty
			}
			return err
		}

		// Источник правды на оформлении — кэш корзины, при его пустоте —
		// сами позиции черновика.
		now := s.now().UTC()
		if entries, ok := s.cache.Get(customerID); ok {
			if err := order.ReplaceItems(domain.ItemsFromCart(entries, now), now); err != nil {
				return err
			}
		}
		if len(order.Items) == 0 {
			return domain.ErrCartEmpty
		}

		if err := order.StampCheckout(
			input.CustomerName, input.CustomerAddress, input.CustomerPhone,
			input.PaymentMethod, input.Kind, input.ScheduledFor, now,
		); err != nil {
			return err
		}
		if err := order.AttemptFulfillment(domain.FulfillmentPending); err != nil {
			return err
		}
		if err := s.orders.Save(order); err != nil {
			return err
		}
		// Save инкрементирует версию в хранилище; локальная копия должна
		// совпасть на случай компенсирующего сохранения.
		order.Version++

		session, payment, err := s.createSession(ctx, order)
		if err != nil {
			s.compensate(ctx, &order, payment, err)
			return err
		}

		result = CheckoutResult{
			OrderID:     order.ID,
			Reference:   order.Reference,
			RedirectURL: session.RedirectURL,
		}
		s.enqueueEvent(kafka.EventTypeCheckoutCompleted, order, map[string]any{
			"total":    order.Total.StringFixed(2),
			"currency": order.Currency,
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordCheckoutFailed()
		return CheckoutResult{}, err
	}

	s.metrics.RecordCheckoutCompleted()
	s.cache.Delete(customerID)
	return result, nil
}

// createSession создаёт платёж и сессию оплаты. Платёж создаётся до вызова
// шлюза: если сессия не получится, он будет помечен failed, а не удалён, —
// журнал расчётов обязан видеть каждую попытку.
func (s *Service) createSession(ctx context.Context, order domain.Order) (domain.Session, domain.Payment, error) {
	now := s.now().UTC()
	payment := domain.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		TransactionID: uuid.NewString(),
		Amount:        order.Total,
		Currency:      order.Currency,
		Status:        domain.PaymentStatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(payment); err != nil {
		return domain.Session{}, domain.Payment{}, err
	}

	session, err := s.gateway.CreateSession(ctx, domain.SessionRequest{
		TransactionID: payment.TransactionID,
		OrderRef:      order.Reference,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
	})
	if err != nil {
		return domain.Session{}, payment, err
	}

	s.appendLog(payment.ID, domain.LogSessionCreated, map[string]any{
		"tran_id":      payment.TransactionID,
		"session_id":   session.SessionID,
		"redirect_url": session.RedirectURL,
		"amount":       payment.Amount.StringFixed(2),
	})
	return session, payment, nil
}

// compensate разматывает неудачное оформление до безопасного состояния:
// заказ возвращается в draft (клиент повторит checkout с той же корзиной),
// платёж без сессии помечается failed. Выполняется до снятия блокировки,
// поэтому «pending без сессии» снаружи не наблюдаем.
func (s *Service) compensate(ctx context.Context, order *domain.Order, payment domain.Payment, cause error) {
	s.metrics.RecordCheckoutCompensated()
	s.logger.WithError(cause).WithFields(log.Fields{
		"order_id": order.ID,
		"tran_id":  payment.TransactionID,
	}).Warn("checkout failed at gateway, reverting order to draft")

	if payment.ID != "" {
		payment.Status = domain.PaymentStateFailed
		payment.UpdatedAt = s.now().UTC()
		if err := s.payments.Save(payment); err != nil {
			s.logger.WithError(err).WithField("payment_id", payment.ID).Error("failed to mark payment failed")
		}
		s.appendLog(payment.ID, domain.LogSessionFailed, map[string]any{
			"tran_id": payment.TransactionID,
			"error":   cause.Error(),
		})
	}

	if err := order.RevertToDraft(); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("compensating revert refused")
		return
	}
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.Save(*order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist compensating revert")
		return
	}
	s.enqueueEvent(kafka.EventTypeCheckoutReverted, *order, map[string]any{"reason": cause.Error()})
}

// draftFor возвращает черновик клиента, при отсутствии — создаёт новый
// с пересчитанными (нулевыми) итогами.
func (s *Service) draftFor(customerID string) (domain.Order, error) {
	order, err := s.orders.FindDraftByCustomer(customerID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, err
	}

	order, err = domain.NewDraftOrder(customerID, s.currency, s.taxRate.Rate(), s.now().UTC())
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.orders.Create(order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// appendLog пишет запись журнала расчётов; ошибка журнала логируется,
// но не отменяет операцию.
func (s *Service) appendLog(paymentID string, kind domain.SettlementLogKind, payload map[string]any) {
	raw, _ := json.Marshal(payload)
	entry := domain.SettlementLogEntry{
		ID:        uuid.NewString(),
		PaymentID: paymentID,
		Kind:      kind,
		Payload:   raw,
		Occurred:  s.now().UTC(),
	}
	if err := s.slog.Append(entry); err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID).Error("failed to append settlement log")
	}
}

// enqueueEvent ставит событие уведомления в outbox. Канал best-effort:
// сбой постановки логируется и не влияет на исход операции.
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

// Cancel отменяет заказ клиента. Разрешён только там, где таблица переходов
// допускает ребро в cancelled; нерассчитанный платёж, если он есть,
// помечается cancelled вместе с заказом.
func (s *Service) Cancel(ctx context.Context, customerID, orderID string) (domain.Order, error) {
	var cancelled domain.Order
	err := s.locker.WithLock(ctx, domain.CustomerOrderLockKey(customerID), func() error {
		order, err := s.orders.Get(orderID)
		if err != nil {
			return err
		}
		// Чужой заказ неотличим от несуществующего.
		if order.CustomerID != customerID {
			return domain.ErrOrderNotFound
		}

		if err := order.AttemptFulfillment(domain.FulfillmentCancelled); err != nil {
			return err
		}
		now := s.now().UTC()
		order.UpdatedAt = now

		if payment, err := s.payments.GetByOrderID(order.ID); err == nil && !payment.Status.Settled() {
			payment.Status = domain.PaymentStateCancelled
			payment.UpdatedAt = now
			if err := s.payments.Save(payment); err != nil {
				return err
			}
		}

		if err := s.orders.Save(order); err != nil {
			return err
		}
		s.enqueueEvent(kafka.EventTypeOrderCancelled, order, nil)
		cancelled = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.cache.Delete(customerID)
	return cancelled, nil
}

// Orders возвращает заказы клиента, новые первыми.
func (s *Service) Orders(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	return s.orders.ListByCustomer(customerID, limit)
}
