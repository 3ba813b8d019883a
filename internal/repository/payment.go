package repository

import (
	"context"

	"drivio/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
// A ride owns at most one payment row; switching method rewrites it.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrPaymentExists when the ride
	// already has a payment row.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByRideID retrieves the ride's payment or ErrNotFound.
	GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error)

	// GetByExternalRef retrieves a payment by its processor reference.
	GetByExternalRef(ctx context.Context, ref string) (*domain.Payment, error)

	// ListByRider returns the rider's payments, newest first.
	ListByRider(ctx context.Context, riderID string) ([]*domain.Payment, error)

	// Update rewrites method, status, amount and external reference of a
	// payment that has not succeeded yet. Returns ErrPaymentAlreadySucceeded
	// when the stored payment already succeeded.
	Update(ctx context.Context, payment *domain.Payment) error
}
