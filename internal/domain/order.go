package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FulfillmentStatus описывает ось исполнения заказа.
type FulfillmentStatus string

const (
	// FulfillmentDraft — черновик: корзина клиента, позиции мутабельны.
	FulfillmentDraft FulfillmentStatus = "draft"
	// FulfillmentPending — заказ оформлен, ожидает подтверждения оплаты.
	FulfillmentPending FulfillmentStatus = "pending"
	// FulfillmentConfirmed — оплата подтверждена, заказ принят в работу.
	FulfillmentConfirmed FulfillmentStatus = "confirmed"
	// FulfillmentProcessing — исполнитель работает над заказом.
	FulfillmentProcessing FulfillmentStatus = "processing"
	// FulfillmentShipped — заказ передан в доставку.
	FulfillmentShipped FulfillmentStatus = "shipped"
	// FulfillmentDelivered — заказ доставлен клиенту.
	FulfillmentDelivered FulfillmentStatus = "delivered"
	// FulfillmentCompleted — услуга оказана полностью.
	FulfillmentCompleted FulfillmentStatus = "completed"
	// FulfillmentCancelled — заказ отменён до завершения цикла (терминальный).
	FulfillmentCancelled FulfillmentStatus = "cancelled"
	// FulfillmentRefunded — по заказу выполнен возврат.
	FulfillmentRefunded FulfillmentStatus = "refunded"
	// FulfillmentOnHold — исполнение приостановлено.
	FulfillmentOnHold FulfillmentStatus = "on_hold"
	// FulfillmentDisputed — по заказу открыт спор (терминальный для ядра).
	FulfillmentDisputed FulfillmentStatus = "disputed"
)

// PaymentStatus описывает ось оплаты заказа. Ось связана со статусом
// платежа (PaymentState), но не дублирует его: сверка двигает обе.
type PaymentStatus string

const (
	// PaymentStatusUnpaid — оплата ещё не подтверждена.
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusPending — оплата инициирована, ждём шлюз.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — деньги подтверждены шлюзом.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusPartiallyRefunded — частичный возврат.
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	// PaymentStatusRefunded — полный возврат.
	PaymentStatusRefunded PaymentStatus = "refunded"
	// PaymentStatusFailed — оплата не состоялась.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusDisputed — по оплате открыт спор.
	PaymentStatusDisputed PaymentStatus = "disputed"
)

// OrderKind — закрытое множество видов заказа. Полиморфизм видов выражен
// тегом и switch, а не иерархией типов.
type OrderKind string

const (
	// KindStandard — обычный заказ с типовым сроком выезда мастера.
	KindStandard OrderKind = "standard"
	// KindExpress — срочный заказ.
	KindExpress OrderKind = "express"
	// KindScheduled — заказ на согласованную дату.
	KindScheduled OrderKind = "scheduled"
)

// LineItem представляет одну позицию заказа. Цена и название услуги —
// снимок на момент добавления в корзину, из каталога не перечитываются.
type LineItem struct {
	ID          string
	ServiceID   string
	ServiceName string
	Qty         int32
	UnitPrice   decimal.Decimal
	CreatedAt   time.Time
}

// Order агрегирует состояние заказа: двухосевую машину состояний, позиции,
// деньги и реквизиты клиента. Все изменения после создания идут через
// мутаторы и AttemptTransition; прямое выставление статусов запрещено.
type Order struct {
	ID         string
	Reference  string
	CustomerID string
	Kind       OrderKind

	FulfillmentStatus FulfillmentStatus
	PaymentStatus     PaymentStatus

	Items    []LineItem
	Currency string
	TaxRate  decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	PaymentMethod   string

	ScheduledFor time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDraftOrder — двухфазный конструктор: собирает черновик с начальными
// значениями и сразу пересчитывает итоги (в том числе при пустой корзине —
// нулевые итоги должны быть честными, а не «ещё не посчитанными»).
func NewDraftOrder(customerID, currency string, taxRate decimal.Decimal, now time.Time) (Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return Order{}, ErrCustomerRequired
	}
	if strings.TrimSpace(currency) == "" {
		return Order{}, ErrCurrencyRequired
	}

	order := Order{
		ID:                uuid.NewString(),
		Reference:         NewOrderReference(now),
		CustomerID:        customerID,
		Kind:              KindStandard,
		FulfillmentStatus: FulfillmentDraft,
		PaymentStatus:     PaymentStatusUnpaid,
		Items:             nil,
		Currency:          currency,
		TaxRate:           taxRate,
		Version:           0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	order.touch(now)
	return order, nil
}

// NewOrderReference генерирует человекочитаемый номер заказа.
// Номер неизменяем после первого сохранения.
func NewOrderReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("HS-%s-%s", now.UTC().Format("20060102"), suffix)
}

// AddItem добавляет позицию в черновик или увеличивает количество
// существующей. Итоги пересчитываются на каждой мутации.
func (o *Order) AddItem(serviceID, serviceName string, qty int32, unitPrice decimal.Decimal, now time.Time) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	if strings.TrimSpace(serviceID) == "" {
		return ErrServiceRequired
	}
	if qty <= 0 {
		return ErrQuantityInvalid
	}
	if unitPrice.IsNegative() {
		return ErrUnitPriceInvalid
	}

	for i := range o.Items {
		if o.Items[i].ServiceID == serviceID {
			o.Items[i].Qty += qty
			o.touch(now)
			return nil
		}
	}

	o.Items = append(o.Items, LineItem{
		ID:          uuid.NewString(),
		ServiceID:   serviceID,
		ServiceName: serviceName,
		Qty:         qty,
		UnitPrice:   unitPrice,
		CreatedAt:   now,
	})
	o.touch(now)
	return nil
}

// RemoveItem удаляет позицию из черновика.
func (o *Order) RemoveItem(serviceID string, now time.Time) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	for i := range o.Items {
		if o.Items[i].ServiceID == serviceID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.touch(now)
			return nil
		}
	}
	return ErrCartItemNotFound
}

// SetQuantity выставляет количество существующей позиции черновика.
func (o *Order) SetQuantity(serviceID string, qty int32, now time.Time) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	if qty <= 0 {
		return ErrQuantityInvalid
	}
	for i := range o.Items {
		if o.Items[i].ServiceID == serviceID {
			o.Items[i].Qty = qty
			o.touch(now)
			return nil
		}
	}
	return ErrCartItemNotFound
}

// ReplaceItems материализует корзину в позиции черновика целиком.
// Используется сервисом оформления, когда источником правды выступает кэш.
func (o *Order) ReplaceItems(items []LineItem, now time.Time) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	for _, item := range items {
		if item.Qty <= 0 {
			return ErrQuantityInvalid
		}
		if item.UnitPrice.IsNegative() {
			return ErrUnitPriceInvalid
		}
	}
	o.Items = append([]LineItem(nil), items...)
	o.touch(now)
	return nil
}

// StampCheckout фиксирует реквизиты клиента и вид заказа на оформлении.
// После этого поля меняются только ручным вмешательством поддержки.
func (o *Order) StampCheckout(name, address, phone, paymentMethod string, kind OrderKind, scheduledFor time.Time, now time.Time) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	o.CustomerName = name
	o.CustomerAddress = address
	o.CustomerPhone = phone
	o.PaymentMethod = paymentMethod
	if kind != "" {
		o.Kind = kind
	}
	o.ScheduledFor = scheduledFor
	o.touch(now)
	return nil
}

// DeliveryEstimate возвращает ожидаемое время выезда мастера в зависимости
// от вида заказа.
func (o *Order) DeliveryEstimate() time.Time {
	switch o.Kind {
	case KindExpress:
		return o.UpdatedAt.Add(24 * time.Hour)
	case KindScheduled:
		if !o.ScheduledFor.IsZero() {
			return o.ScheduledFor
		}
		return o.UpdatedAt.Add(72 * time.Hour)
	default:
		return o.UpdatedAt.Add(72 * time.Hour)
	}
}

// Validate проверяет согласованность заказа и возвращает список замечаний.
func (o *Order) Validate() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if o.FulfillmentStatus != FulfillmentDraft && len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrUnitPriceInvalid)
		}
	}

	// Сверяем зафиксированные итоги с пересчётом по позициям.
	calc := NewCalculator(o.TaxRate)
	subtotal, tax, total := calc.Totals(o.Items)
	if !o.Subtotal.Equal(subtotal) || !o.Tax.Equal(tax) || !o.Total.Equal(total) {
		errs = append(errs, ErrTotalsInconsistent)
	}

	return errs
}

func (o *Order) ensureDraft() error {
	if o.FulfillmentStatus != FulfillmentDraft {
		return ErrOrderNotDraft
	}
	return nil
}

// touch пересчитывает итоги и обновляет метку времени. Вызывается каждой
// мутацией: заказ никогда не наблюдается с устаревшими итогами.
func (o *Order) touch(now time.Time) {
	calc := NewCalculator(o.TaxRate)
	o.Subtotal, o.Tax, o.Total = calc.Totals(o.Items)
	o.UpdatedAt = now
}
