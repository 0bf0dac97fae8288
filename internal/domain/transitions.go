package domain

// Axis указывает, по какой оси состояния запрошен переход.
type Axis string

const (
	// AxisFulfillment — ось исполнения заказа (draft … completed/cancelled).
	AxisFulfillment Axis = "fulfillment"
	// AxisPayment — ось оплаты заказа (unpaid … refunded/disputed).
	AxisPayment Axis = "payment"
)

// fulfillmentTransitions — статическая таблица разрешённых переходов по оси
// исполнения. Ключ — текущий статус, значение — допустимые целевые статусы.
// Отсутствие статуса в таблице означает терминальное состояние.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentDraft:      {FulfillmentPending, FulfillmentCancelled},
	FulfillmentPending:    {FulfillmentProcessing, FulfillmentConfirmed, FulfillmentCancelled},
	FulfillmentConfirmed:  {FulfillmentProcessing},
	FulfillmentProcessing: {FulfillmentCompleted, FulfillmentOnHold, FulfillmentCancelled},
	FulfillmentOnHold:     {FulfillmentProcessing, FulfillmentCancelled},
	FulfillmentCompleted:  {FulfillmentRefunded, FulfillmentDisputed},
	FulfillmentRefunded:   {FulfillmentDisputed},
	// cancelled и disputed — терминальные; разбор споров за рамками ядра.
}

// paymentTransitions — статическая таблица переходов по оси оплаты.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusUnpaid:            {PaymentStatusPaid},
	PaymentStatusPaid:              {PaymentStatusRefunded, PaymentStatusPartiallyRefunded, PaymentStatusDisputed},
	PaymentStatusPartiallyRefunded: {PaymentStatusDisputed},
}

// CanTransitionFulfillment проверяет допустимость перехода по оси исполнения.
func CanTransitionFulfillment(from, to FulfillmentStatus) bool {
	for _, allowed := range fulfillmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment проверяет допустимость перехода по оси оплаты.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AttemptTransition атомарно применяет переход по указанной оси: сначала
// проверка по таблице, затем мутация. При отказе состояние заказа не меняется
// ни на байт, вызывающий получает ErrTransitionRefused и может на него
// сослаться в своей логике.
func (o *Order) AttemptTransition(axis Axis, target string) error {
	switch axis {
	case AxisFulfillment:
		return o.AttemptFulfillment(FulfillmentStatus(target))
	case AxisPayment:
		return o.AttemptPayment(PaymentStatus(target))
	default:
		return ErrTransitionRefused
	}
}

// AttemptFulfillment применяет переход по оси исполнения.
func (o *Order) AttemptFulfillment(target FulfillmentStatus) error {
	if !CanTransitionFulfillment(o.FulfillmentStatus, target) {
		return ErrTransitionRefused
	}
	o.FulfillmentStatus = target
	return nil
}

// AttemptPayment применяет переход по оси оплаты.
func (o *Order) AttemptPayment(target PaymentStatus) error {
	if !CanTransitionPayment(o.PaymentStatus, target) {
		return ErrTransitionRefused
	}
	o.PaymentStatus = target
	return nil
}

// RevertToDraft — компенсирующая операция оформления заказа: если сессию
// оплаты создать не удалось, заказ возвращается из pending в draft, чтобы
// клиент мог повторить checkout с той же корзиной. Это сознательно не ребро
// таблицы переходов: обычный AttemptTransition не должен уметь «откатывать»
// заказ, компенсация доступна только сервису оформления.
func (o *Order) RevertToDraft() error {
	if o.FulfillmentStatus != FulfillmentPending {
		return ErrTransitionRefused
	}
	o.FulfillmentStatus = FulfillmentDraft
	return nil
}
