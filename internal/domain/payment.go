package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentState описывает состояние платежа как записи о расчёте со шлюзом.
// Намеренно отдельный тип от PaymentStatus заказа: сверка обновляет оба.
type PaymentState string

const (
	// PaymentStatePending — сессия оплаты создана, ждём исход от шлюза.
	PaymentStatePending PaymentState = "pending"
	// PaymentStateProcessing — шлюз принял платёж в обработку.
	PaymentStateProcessing PaymentState = "processing"
	// PaymentStateCompleted — платёж подтверждён валидацией у шлюза.
	PaymentStateCompleted PaymentState = "completed"
	// PaymentStateFailed — платёж не состоялся (отказ шлюза или расхождение суммы).
	PaymentStateFailed PaymentState = "failed"
	// PaymentStateCancelled — платёж отменён до завершения.
	PaymentStateCancelled PaymentState = "cancelled"
	// PaymentStateRefunded — по платежу выполнен возврат.
	PaymentStateRefunded PaymentState = "refunded"
	// PaymentStateDisputed — по платежу открыт спор.
	PaymentStateDisputed PaymentState = "disputed"
)

// Settled сообщает, обработан ли платёж до терминального успешного состояния.
// Используется сверкой как проверка идемпотентности: повторное уведомление
// для завершённого платежа — безопасный no-op.
func (s PaymentState) Settled() bool {
	return s == PaymentStateCompleted || s == PaymentStateRefunded
}

// Payment описывает расчёт по заказу. Создаётся синхронно при запросе сессии
// оплаты, мутируется только сервисом сверки, не удаляется никогда.
type Payment struct {
	ID      string
	OrderID string
	// TransactionID — внешне видимый, глобально уникальный ключ
	// идемпотентности: единственный ключ дедупликации уведомлений.
	TransactionID string
	// CorrelationID — идентификатор валидации от шлюза (val_id),
	// записывается один раз при первой успешной валидации.
	CorrelationID string
	// Amount и Currency — снимок итога заказа на момент создания сессии.
	// Любое расхождение при валидации — жёсткая ошибка, не корректируется.
	Amount    decimal.Decimal
	Currency  string
	Status    PaymentState
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if p.TransactionID == "" {
		errs = append(errs, ErrTransactionIDRequired)
	}
	if p.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if p.Amount.IsNegative() {
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}
