package postgres

import (
	"context"
	"database/sql"
	"errors"

	"drivio/internal/domain"
	"drivio/internal/repository"
)

// PromoRepository is a PostgreSQL implementation of repository.PromoRepository.
type PromoRepository struct {
	q Querier
}

// GetByCode retrieves a promo by code, case-insensitively.
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `
		SELECT id, code, discount_percent, valid_from, valid_until, single_use, usage_limit, used_count
		FROM promo_codes WHERE UPPER(code) = UPPER($1)
	`

	var promo domain.PromoCode
	var validFrom, validUntil sql.NullTime
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&promo.ID,
		&promo.Code,
		&promo.DiscountPercent,
		&validFrom,
		&validUntil,
		&promo.SingleUse,
		&promo.UsageLimit,
		&promo.UsedCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	promo.ValidFrom = validFrom.Time
	promo.ValidUntil = validUntil.Time
	return &promo, nil
}

// IncrementUsage bumps the used count while the cap allows it. The
// conditional update makes concurrent applies unable to overshoot.
func (r *PromoRepository) IncrementUsage(ctx context.Context, promoID string) (bool, error) {
	query := `
		UPDATE promo_codes SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)
	`

	result, err := r.q.ExecContext(ctx, query, promoID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// HasRedemption reports whether the rider already redeemed the promo.
func (r *PromoRepository) HasRedemption(ctx context.Context, promoID, riderID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM promo_redemptions WHERE promo_id = $1 AND rider_id = $2)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, promoID, riderID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateRedemption persists a redemption.
func (r *PromoRepository) CreateRedemption(ctx context.Context, redemption *domain.PromoRedemption) error {
	query := `
		INSERT INTO promo_redemptions (id, promo_id, code, rider_id, discount_percent, single_use, ride_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		redemption.ID,
		redemption.PromoID,
		redemption.Code,
		redemption.RiderID,
		redemption.DiscountPercent,
		redemption.SingleUse,
		nullString(redemption.RideID),
		redemption.CreatedAt,
	)
	if uniqueConstraint(err) == "promo_redemptions_single_use" {
		return repository.ErrDuplicateRedemption
	}
	return err
}

// ClaimRedemption locks the rider's oldest unconsumed redemption of code.
// SKIP LOCKED keeps two concurrent ride requests from claiming the same row.
func (r *PromoRepository) ClaimRedemption(ctx context.Context, code, riderID string) (*domain.PromoRedemption, error) {
	query := `
		SELECT id, promo_id, code, rider_id, discount_percent, single_use, created_at
		FROM promo_redemptions
		WHERE UPPER(code) = UPPER($1) AND rider_id = $2 AND ride_id IS NULL
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var redemption domain.PromoRedemption
	err := r.q.QueryRowContext(ctx, query, code, riderID).Scan(
		&redemption.ID,
		&redemption.PromoID,
		&redemption.Code,
		&redemption.RiderID,
		&redemption.DiscountPercent,
		&redemption.SingleUse,
		&redemption.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &redemption, nil
}

// AttachRedemption marks a claimed redemption as consumed by the ride.
func (r *PromoRepository) AttachRedemption(ctx context.Context, redemptionID, rideID string) error {
	query := `UPDATE promo_redemptions SET ride_id = $1 WHERE id = $2 AND ride_id IS NULL`

	result, err := r.q.ExecContext(ctx, query, rideID, redemptionID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
