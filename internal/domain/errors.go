package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве услуги (<= 0).
	ErrQuantityInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrUnitPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка несоответствия итогов заказа и сумм позиций.
	ErrTotalsInconsistent = errors.New("order totals do not match line items")
	// Ошибка отсутствующего идентификатора услуги.
	ErrServiceRequired = errors.New("service_id is required")
	// ErrServiceInactive — услуга снята с публикации и недоступна для заказа.
	ErrServiceInactive = errors.New("service is not active")
	// ErrServiceNotFound — услуга отсутствует в каталоге.
	ErrServiceNotFound = errors.New("service not found in catalog")
	// ErrCartEmpty — попытка оформить заказ с пустой корзиной.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCartItemNotFound — позиции нет ни в кэше корзины, ни в черновике заказа.
	ErrCartItemNotFound = errors.New("cart item not found")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderNotDraft — мутаторы позиций доступны только черновику.
	ErrOrderNotDraft = errors.New("order is not in draft status")
	// ErrTransitionRefused — запрошенный переход отсутствует в таблице переходов.
	// Отличается от ошибок валидации: вход корректен, но момент неподходящий.
	ErrTransitionRefused = errors.New("state transition refused")

	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentVersionConflict сигнализирует о конфликте версий платежа.
	ErrPaymentVersionConflict = errors.New("payment version conflict")
	// ErrPaymentAmountNegative — отрицательная сумма платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")
	// ErrTransactionIDRequired — платёж без идемпотентного ключа недопустим.
	ErrTransactionIDRequired = errors.New("transaction_id is required")
	// Ошибка отсутствующего идентификатора заказа в платеже/журнале.
	ErrOrderIDRequired = errors.New("order_id is required")

	// ErrUnknownTransaction — уведомление о неизвестной транзакции. Платёж
	// никогда не создаётся задним числом по факту уведомления.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrAmountMismatch — шлюз подтвердил сумму, отличную от зафиксированной
	// в платеже. Молчаливая корректировка запрещена: платёж помечается failed.
	ErrAmountMismatch = errors.New("validated amount does not match payment amount")
	// ErrTransactionMismatch — ответ шлюза относится к другой транзакции.
	// Как и расхождение суммы, это жёсткий отказ без корректировки.
	ErrTransactionMismatch = errors.New("validated transaction does not match payment")
	// ErrReconcileConflict — заказ успел уйти из ожидаемого статуса, пока шла
	// сверка. Требует внимания оператора, автоматический retry бесполезен.
	ErrReconcileConflict = errors.New("order state diverged during reconciliation")
	// ErrGatewayUnavailable — временная ошибка платёжного шлюза, запрос можно
	// безопасно повторить: состояние не менялось.
	ErrGatewayUnavailable = errors.New("settlement gateway unavailable")
	// ErrGatewayRejected — шлюз явно отклонил создание сессии или валидацию.
	ErrGatewayRejected = errors.New("settlement gateway rejected request")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict) || errors.Is(err, ErrPaymentVersionConflict)
}

// IsValidation относит ошибку к классу ошибок валидации входа: состояние
// системы не менялось, повтор без исправления данных бессмысленен.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrQuantityInvalid),
		errors.Is(err, ErrUnitPriceInvalid),
		errors.Is(err, ErrServiceRequired),
		errors.Is(err, ErrServiceInactive),
		errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrCustomerRequired):
		return true
	}
	return false
}

// IsRetryable отделяет временные внешние сбои от постоянных отказов.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}
