package repository

import (
	"context"
	"time"

	"drivio/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride. Returns ErrRiderActiveRideExists when the
	// rider already holds a non-terminal ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetActiveByRiderID returns the rider's non-terminal ride or ErrNotFound.
	GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error)

	// GetActiveByDriverID returns the driver's accepted or in-progress ride or ErrNotFound.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error)

	// CompareAndSwap writes ride's mutable state only if the stored revision
	// equals expectedRevision, bumping the revision by one. Returns false
	// when the stored ride changed in between.
	CompareAndSwap(ctx context.Context, ride *domain.Ride, expectedRevision int) (bool, error)

	// ListRequestedSince returns requested rides created at or after since,
	// newest first.
	ListRequestedSince(ctx context.Context, since time.Time, limit int) ([]*domain.Ride, error)

	// ListByRider returns a rider's rides, newest first.
	ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error)

	// ListByDriver returns a driver's rides, newest first.
	ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error)

	// ListAwaitingPayment returns the rider's completed rides without a succeeded payment.
	ListAwaitingPayment(ctx context.Context, riderID string) ([]*domain.Ride, error)
}

// RideEventRepository persists the ride transition log.
type RideEventRepository interface {
	// Append stores an event and assigns its sequence number.
	Append(ctx context.Context, event *domain.RideEvent) error

	// ListByRide returns a ride's events in sequence order.
	ListByRide(ctx context.Context, rideID string) ([]*domain.RideEvent, error)
}
