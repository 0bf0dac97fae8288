package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

// MockGateway — детерминированная in-process замена внешнего шлюза для
// локальной разработки и демо-режима без внешних подключений. Создание
// сессии всегда успешно; валидация подтверждает ранее созданные сессии
// с их исходной суммой.
type MockGateway struct {
	mu       sync.Mutex
	sessions map[string]domain.SessionRequest // val_id -> исходный запрос
}

// NewMockGateway создаёт мок расчётного шлюза.
func NewMockGateway() *MockGateway {
	return &MockGateway{sessions: make(map[string]domain.SessionRequest)}
}

// CreateSession регистрирует сессию и возвращает синтетический редирект.
func (m *MockGateway) CreateSession(_ context.Context, req domain.SessionRequest) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	valID := "VAL-" + uuid.NewString()
	m.sessions[valID] = req
	return domain.Session{
		SessionID:   valID,
		RedirectURL: fmt.Sprintf("https://sandbox.gateway.local/pay/%s", req.TransactionID),
	}, nil
}

// Validate подтверждает ранее созданную сессию.
func (m *MockGateway) Validate(_ context.Context, validationID string) (domain.ValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.sessions[validationID]
	if !ok {
		return domain.ValidationResult{}, fmt.Errorf("%w: unknown val_id", domain.ErrGatewayRejected)
	}

	raw, _ := json.Marshal(map[string]string{
		"status":  "VALID",
		"val_id":  validationID,
		"tran_id": req.TransactionID,
		"amount":  req.Amount.StringFixed(2),
	})

	return domain.ValidationResult{
		Status:        "VALID",
		TransactionID: req.TransactionID,
		CorrelationID: validationID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Raw:           raw,
	}, nil
}

// ValIDByTransaction возвращает val_id сессии по transaction id. Нужен
// демо-режиму и тестам, где уведомление шлюза формируется вручную.
func (m *MockGateway) ValIDByTransaction(tranID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for valID, req := range m.sessions {
		if req.TransactionID == tranID {
			return valID
		}
	}
	return ""
}

var _ domain.SettlementGateway = (*MockGateway)(nil)
