package postgres

import (
	"database/sql"
	"context"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

const paymentColumns = `
	id, order_id, transaction_id, correlation_id, amount, currency,
	status, version, created_at, updated_at
`

func (r *paymentRepository) Create(payment domain.Payment) error {
	if payment.TransactionID == "" {
		return domain.ErrTransactionIDRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		payment.ID, payment.OrderID, payment.TransactionID, payment.CorrelationID,
		payment.Amount, payment.Currency, string(payment.Status),
		payment.Version, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentVersionConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) Get(id string) (domain.Payment, error) {
	return r.getBy(`id = $1`, id, domain.ErrPaymentNotFound)
}

func (r *paymentRepository) GetByTransactionID(transactionID string) (domain.Payment, error) {
	// Неизвестная транзакция — ошибка целостности, а не повод завести платёж.
	return r.getBy(`transaction_id = $1`, transactionID, domain.ErrUnknownTransaction)
}

func (r *paymentRepository) GetByOrderID(orderID string) (domain.Payment, error) {
	return r.getBy(`order_id = $1`, orderID, domain.ErrPaymentNotFound)
}

func (r *paymentRepository) getBy(where, arg string, notFound error) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		payment domain.Payment
		status  string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE `+where+`
	`, arg).Scan(
		&payment.ID, &payment.OrderID, &payment.TransactionID, &payment.CorrelationID,
		&payment.Amount, &payment.Currency, &status,
		&payment.Version, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, notFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	payment.Status = domain.PaymentState(status)

	return payment, nil
}

func (r *paymentRepository) Save(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET correlation_id = $1,
		    status = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		payment.CorrelationID, string(payment.Status), payment.UpdatedAt,
		payment.ID, payment.Version,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := r.Get(payment.ID); errors.Is(getErr, domain.ErrPaymentNotFound) {
			return domain.ErrPaymentNotFound
		}
		return domain.ErrPaymentVersionConflict
	}

	return nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
