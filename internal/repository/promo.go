package repository

import (
	"context"

	"drivio/internal/domain"
)

// PromoRepository defines the persistence operations for promo codes and
// their redemptions.
type PromoRepository interface {
	// GetByCode retrieves a promo by its normalized code.
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)

	// IncrementUsage bumps the used count unless the usage cap is reached.
	// Returns false when the cap is exhausted.
	IncrementUsage(ctx context.Context, promoID string) (bool, error)

	// HasRedemption reports whether the rider already redeemed the promo.
	HasRedemption(ctx context.Context, promoID, riderID string) (bool, error)

	// CreateRedemption persists a redemption. Returns ErrDuplicateRedemption
	// for a second single-use redemption by the same rider.
	CreateRedemption(ctx context.Context, redemption *domain.PromoRedemption) error

	// ClaimRedemption locks the rider's oldest unconsumed redemption of code
	// for the current transaction. Returns ErrNotFound when none is available.
	ClaimRedemption(ctx context.Context, code, riderID string) (*domain.PromoRedemption, error)

	// AttachRedemption marks a claimed redemption as consumed by rideID.
	AttachRedemption(ctx context.Context, redemptionID, rideID string) error
}
