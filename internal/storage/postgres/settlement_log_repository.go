package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

type settlementLogRepository struct {
	db *sql.DB
}

// NewSettlementLogRepository создаёт PostgreSQL-реализацию SettlementLogRepository.
// Таблица append-only: UPDATE/DELETE по ней не выполняются никогда.
func NewSettlementLogRepository(store *Store) domain.SettlementLogRepository {
	return &settlementLogRepository{db: store.DB()}
}

func (r *settlementLogRepository) Append(entry domain.SettlementLogEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settlement_log (id, payment_id, kind, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
	`,
		entry.ID, entry.PaymentID, string(entry.Kind), entry.Payload, entry.Occurred,
	)
	if err != nil {
		return fmt.Errorf("append settlement log: %w", err)
	}

	return nil
}

func (r *settlementLogRepository) ListByPayment(paymentID string) ([]domain.SettlementLogEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payment_id, kind, payload, occurred_at
		FROM settlement_log
		WHERE payment_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list settlement log: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.SettlementLogEntry, 0)
	for rows.Next() {
		var (
			entry domain.SettlementLogEntry
			kind  string
		)
		if err := rows.Scan(&entry.ID, &entry.PaymentID, &kind, &entry.Payload, &entry.Occurred); err != nil {
			return nil, fmt.Errorf("scan settlement log entry: %w", err)
		}
		entry.Kind = domain.SettlementLogKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement log: %w", err)
	}

	return entries, nil
}

var _ domain.SettlementLogRepository = (*settlementLogRepository)(nil)
