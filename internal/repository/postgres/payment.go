package postgres

import (
	"context"
	"database/sql"
	"errors"

	"drivio/internal/domain"
	"drivio/internal/repository"
)

const paymentColumns = `id, ride_id, rider_id, amount, currency, method, status, external_ref,
	idempotency_key, created_at, updated_at`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, ride_id, rider_id, amount, currency, method, status, external_ref,
			idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.RideID,
		payment.RiderID,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Status,
		nullString(payment.ExternalRef),
		payment.IdempotencyKey,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if uniqueConstraint(err) == "payments_one_per_ride" {
		return repository.ErrPaymentExists
	}
	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByRideID retrieves the ride's payment.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE ride_id = $1`, rideID)
}

// GetByExternalRef retrieves a payment by its processor reference.
func (r *PaymentRepository) GetByExternalRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE external_ref = $1`, ref)
}

// ListByRider returns the rider's payments, newest first.
func (r *PaymentRepository) ListByRider(ctx context.Context, riderID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE rider_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.q.QueryContext(ctx, query, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// Update rewrites a payment that has not succeeded yet.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET amount = $1, method = $2, status = $3, external_ref = $4, idempotency_key = $5, updated_at = $6
		WHERE id = $7 AND status <> 'SUCCEEDED'
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Amount,
		payment.Method,
		payment.Status,
		nullString(payment.ExternalRef),
		payment.IdempotencyKey,
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, payment.ID); err != nil {
			return err
		}
		return repository.ErrPaymentAlreadySucceeded
	}

	return nil
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var externalRef sql.NullString

	err := row.Scan(
		&payment.ID,
		&payment.RideID,
		&payment.RiderID,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Status,
		&externalRef,
		&payment.IdempotencyKey,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.ExternalRef = externalRef.String
	return &payment, nil
}
