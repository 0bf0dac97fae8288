package kafka

import "time"

// EventType определяет тип события жизненного цикла заказа.
type EventType string

const (
	// События оформления
	EventTypeCheckoutCompleted EventType = "order.checkout_completed"
	EventTypeCheckoutReverted  EventType = "order.checkout_reverted"

	// События оплаты
	EventTypePaymentConfirmed EventType = "payment.confirmed"
	EventTypePaymentFailed    EventType = "payment.failed"

	// События исполнения
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderCancelled EventType = "order.cancelled"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "homeserve.order.events"
	TopicDeadLetterQueue = "homeserve.dlq"
)

// OrderEvent — событие заказа, уходящее потребителям уведомлений
// (email/push). Канал best-effort: потеря события не влияет на
// зафиксированное состояние заказа.
type OrderEvent struct {
	EventType  EventType      `json:"event_type"`
	OrderID    string         `json:"order_id"`
	CustomerID string         `json:"customer_id"`
	Reference  string         `json:"reference"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewOrderEvent создаёт событие заказа с текущей меткой времени.
func NewOrderEvent(eventType EventType, orderID, customerID, reference string, metadata map[string]any) OrderEvent {
	return OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Reference:  reference,
		Timestamp:  time.Now().UTC(),
		Metadata:   metadata,
	}
}
