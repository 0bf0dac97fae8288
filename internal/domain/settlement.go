package domain

import "time"

// SettlementLogKind — тип записи журнала расчётов.
type SettlementLogKind string

const (
	// LogSessionCreated — сессия оплаты успешно создана у шлюза.
	LogSessionCreated SettlementLogKind = "session_created"
	// LogSessionFailed — попытка создать сессию завершилась ошибкой.
	LogSessionFailed SettlementLogKind = "session_failed"
	// LogNotificationReceived — входящее уведомление шлюза (включая дубликаты).
	LogNotificationReceived SettlementLogKind = "notification_received"
	// LogValidationSucceeded — повторная валидация у шлюза подтвердила платёж.
	LogValidationSucceeded SettlementLogKind = "validation_succeeded"
	// LogValidationFailed — валидация отклонена (включая расхождение суммы).
	LogValidationFailed SettlementLogKind = "validation_failed"
)

// SettlementLogEntry — запись append-only журнала расчётов. Хранит сырой
// payload для аудита и разбора инцидентов; записи не мутируются и не
// удаляются.
type SettlementLogEntry struct {
	ID        string
	PaymentID string
	Kind      SettlementLogKind
	Payload   []byte
	Occurred  time.Time
}
