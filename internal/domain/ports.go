package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceInfo — снимок услуги из каталога на момент запроса.
type ServiceInfo struct {
	ServiceID string
	Name      string
	UnitPrice decimal.Decimal
	Active    bool
}

// CatalogService — внешний каталог услуг. Ядро снимает цену и название при
// добавлении в корзину и никогда не перечитывает их неявно.
type CatalogService interface {
	Service(ctx context.Context, serviceID string) (ServiceInfo, error)
}

// SessionRequest — запрос на создание сессии оплаты у внешнего шлюза.
type SessionRequest struct {
	TransactionID string
	OrderRef      string
	Amount        decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerPhone string
}

// Session — созданная шлюзом сессия: адрес редиректа плательщика.
type Session struct {
	SessionID   string
	RedirectURL string
}

// ValidationResult — ответ шлюза на повторную валидацию уведомления.
// Сумма и валюта сверяются с зафиксированными в платеже; payload целиком
// уходит в журнал расчётов.
type ValidationResult struct {
	Status        string
	TransactionID string
	CorrelationID string
	Amount        decimal.Decimal
	Currency      string
	Raw           []byte
}

// SettlementGateway — внешний расчётный провайдер: синхронное создание
// сессии и синхронная повторная валидация асинхронного уведомления.
// Оба вызова — блокирующий сетевой ввод-вывод, ограниченный контекстом;
// таймаут эквивалентен явному отказу шлюза.
type SettlementGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	Validate(ctx context.Context, validationID string) (ValidationResult, error)
}

// CartCache — быстрый кэш корзины с ограниченным TTL. Кэш — ускоритель,
// а не источник правды: любая его ошибка деградирует к чтению черновика.
type CartCache interface {
	Get(customerID string) ([]CartEntry, bool)
	Put(customerID string, entries []CartEntry)
	Delete(customerID string)
}

// Locker сериализует операции над заказом одного клиента: оформление и
// сверка держат блокировку на всю свою последовательность шагов.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// CustomerOrderLockKey — единый ключ сериализации операций над заказами
// клиента. Оформление, компенсация и сверка расчётов берут один и тот же
// ключ: взаимное исключение между ними гарантировано, а не случайно.
func CustomerOrderLockKey(customerID string) string {
	return "customer-order:" + customerID
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
