package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

// settlementLogInMemory хранит журнал расчётов в памяти (для разработки/тестов).
type settlementLogInMemory struct {
	mu      sync.RWMutex
	entries map[string][]domain.SettlementLogEntry
}

// NewSettlementLogRepository создаёт in-memory реализацию SettlementLogRepository.
func NewSettlementLogRepository() domain.SettlementLogRepository {
	return &settlementLogInMemory{entries: make(map[string][]domain.SettlementLogEntry)}
}

// Append добавляет запись в журнал. Журнал append-only: записи не
// перезаписываются и не удаляются.
func (r *settlementLogInMemory) Append(entry domain.SettlementLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.PaymentID] = append(r.entries[entry.PaymentID], entry)

	sort.SliceStable(r.entries[entry.PaymentID], func(i, j int) bool {
		return r.entries[entry.PaymentID][i].Occurred.Before(r.entries[entry.PaymentID][j].Occurred)
	})

	return nil
}

// ListByPayment возвращает записи платежа в хронологическом порядке.
func (r *settlementLogInMemory) ListByPayment(paymentID string) ([]domain.SettlementLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[paymentID]
	result := make([]domain.SettlementLogEntry, len(entries))
	copy(result, entries)
	return result, nil
}

var _ domain.SettlementLogRepository = (*settlementLogInMemory)(nil)
