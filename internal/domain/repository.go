package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// FindDraftByCustomer возвращает текущий черновик клиента
	// или ErrOrderNotFound, если черновика нет.
	FindDraftByCustomer(customerID string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// PaymentRepository описывает требования к хранилищу платежей.
type PaymentRepository interface {
	// Create сохраняет новый платёж; transaction_id уникален глобально.
	Create(payment Payment) error
	// Get возвращает платёж по идентификатору или ErrPaymentNotFound.
	Get(id string) (Payment, error)
	// GetByTransactionID ищет платёж по ключу идемпотентности.
	// Отсутствие — ErrUnknownTransaction, платёж не создаётся.
	GetByTransactionID(transactionID string) (Payment, error)
	// GetByOrderID возвращает платёж заказа или ErrPaymentNotFound.
	GetByOrderID(orderID string) (Payment, error)
	// Save применяет обновления к платежу с учётом optimistic locking.
	Save(payment Payment) error
}

// SettlementLogRepository хранит append-only журнал расчётов.
// Записи конкурентно-безопасны на уровне атомарности записи хранилища,
// дополнительных блокировок не требуется.
type SettlementLogRepository interface {
	Append(entry SettlementLogEntry) error
	ListByPayment(paymentID string) ([]SettlementLogEntry, error)
}
