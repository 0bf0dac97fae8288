package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

// paymentRepositoryInMemory — in-memory реализация PaymentRepository.
type paymentRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.Payment
	byTxn   map[string]string // transaction_id -> payment id
	byOrder map[string]string // order_id -> payment id
}

// NewPaymentRepository создаёт in-memory репозиторий платежей.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{
		items:   make(map[string]domain.Payment),
		byTxn:   make(map[string]string),
		byOrder: make(map[string]string),
	}
}

// Create сохраняет новый платёж; transaction_id обязан быть уникальным.
func (r *paymentRepositoryInMemory) Create(payment domain.Payment) error {
	if payment.TransactionID == "" {
		return domain.ErrTransactionIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[payment.ID]; exists {
		return domain.ErrPaymentVersionConflict
	}
	if _, exists := r.byTxn[payment.TransactionID]; exists {
		return domain.ErrPaymentVersionConflict
	}

	r.items[payment.ID] = payment
	r.byTxn[payment.TransactionID] = payment.ID
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

// Get возвращает платёж или ErrPaymentNotFound.
func (r *paymentRepositoryInMemory) Get(id string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.items[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// GetByTransactionID ищет платёж по ключу идемпотентности.
func (r *paymentRepositoryInMemory) GetByTransactionID(transactionID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTxn[transactionID]
	if !ok {
		return domain.Payment{}, domain.ErrUnknownTransaction
	}
	return r.items[id], nil
}

// GetByOrderID возвращает платёж заказа.
func (r *paymentRepositoryInMemory) GetByOrderID(orderID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return r.items[id], nil
}

// Save перезаписывает платёж, проверяя версию (optimistic locking).
func (r *paymentRepositoryInMemory) Save(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[payment.ID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if current.Version != payment.Version {
		return domain.ErrPaymentVersionConflict
	}
	payment.Version++
	r.items[payment.ID] = payment
	return nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
