package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"drivio/internal/domain"
	"drivio/internal/repository"
)

const rideColumns = `id, rider_id, driver_id, cancelled_driver_id,
	pickup_address, pickup_lat, pickup_lng, dropoff_address, dropoff_lat, dropoff_lng,
	ride_class, distance_km, fare, discount_percent, promo_code, status, revision,
	requested_at, accepted_at, started_at, completed_at, cancelled_at, cancel_reason, cancelled_by`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, driver_id, pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng, ride_class, distance_km, fare,
			discount_percent, promo_code, status, revision, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.Pickup.Address,
		ride.Pickup.Lat,
		ride.Pickup.Lng,
		ride.Dropoff.Address,
		ride.Dropoff.Lat,
		ride.Dropoff.Lng,
		ride.Class,
		ride.DistanceKm,
		ride.Fare,
		ride.DiscountPercent,
		nullString(ride.PromoCode),
		ride.Status,
		ride.Revision,
		ride.RequestedAt,
	)
	if uniqueConstraint(err) == "rides_one_active_per_rider" {
		return repository.ErrRiderActiveRideExists
	}
	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetActiveByRiderID returns the rider's non-terminal ride.
func (r *RideRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE rider_id = $1 AND status IN ('REQUESTED', 'ACCEPTED', 'IN_PROGRESS')
		LIMIT 1`
	return r.getOne(ctx, query, riderID)
}

// GetActiveByDriverID returns the driver's accepted or in-progress ride.
func (r *RideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status IN ('ACCEPTED', 'IN_PROGRESS')
		LIMIT 1`
	return r.getOne(ctx, query, driverID)
}

// CompareAndSwap writes the ride's mutable state guarded by its revision.
func (r *RideRepository) CompareAndSwap(ctx context.Context, ride *domain.Ride, expectedRevision int) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1,
			driver_id = $2,
			cancelled_driver_id = $3,
			accepted_at = $4,
			started_at = $5,
			completed_at = $6,
			cancelled_at = $7,
			cancel_reason = $8,
			cancelled_by = $9,
			revision = revision + 1
		WHERE id = $10 AND revision = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		ride.Status,
		nullString(ride.DriverID),
		nullString(ride.CancelledDriverID),
		nullTime(ride.AcceptedAt),
		nullTime(ride.StartedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
		nullString(string(ride.CancelReason)),
		nullString(string(ride.CancelledBy)),
		ride.ID,
		expectedRevision,
	)
	if err != nil {
		if uniqueConstraint(err) == "rides_one_active_per_driver" {
			return false, repository.ErrDriverActiveRideExists
		}
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected == 0 {
		return false, nil
	}

	ride.Revision = expectedRevision + 1
	return true, nil
}

// ListRequestedSince returns open requests made strictly after since.
func (r *RideRepository) ListRequestedSince(ctx context.Context, since time.Time, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE status = 'REQUESTED' AND requested_at > $1
		ORDER BY requested_at DESC, id DESC
		LIMIT $2`
	return r.list(ctx, query, since, limit)
}

// ListByRider returns a rider's rides, newest first.
func (r *RideRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE rider_id = $1
		ORDER BY requested_at DESC, id DESC
		LIMIT $2`
	return r.list(ctx, query, riderID, limit)
}

// ListByDriver returns rides the driver completed, holds, or held at cancellation.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 OR cancelled_driver_id = $1
		ORDER BY requested_at DESC, id DESC
		LIMIT $2`
	return r.list(ctx, query, driverID, limit)
}

// ListAwaitingPayment returns completed rides with no succeeded payment.
func (r *RideRepository) ListAwaitingPayment(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE rider_id = $1 AND status = 'COMPLETED'
		AND NOT EXISTS (
			SELECT 1 FROM payments p WHERE p.ride_id = rides.id AND p.status = 'SUCCEEDED'
		)
		ORDER BY completed_at DESC, id DESC`
	return r.list(ctx, query, riderID)
}

func (r *RideRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, cancelledDriverID, promoCode, cancelReason, cancelledBy sql.NullString
	var acceptedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&cancelledDriverID,
		&ride.Pickup.Address,
		&ride.Pickup.Lat,
		&ride.Pickup.Lng,
		&ride.Dropoff.Address,
		&ride.Dropoff.Lat,
		&ride.Dropoff.Lng,
		&ride.Class,
		&ride.DistanceKm,
		&ride.Fare,
		&ride.DiscountPercent,
		&promoCode,
		&ride.Status,
		&ride.Revision,
		&ride.RequestedAt,
		&acceptedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&cancelReason,
		&cancelledBy,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.CancelledDriverID = cancelledDriverID.String
	ride.PromoCode = promoCode.String
	ride.CancelReason = domain.CancelReason(cancelReason.String)
	ride.CancelledBy = domain.Role(cancelledBy.String)
	ride.AcceptedAt = acceptedAt.Time
	ride.StartedAt = startedAt.Time
	ride.CompletedAt = completedAt.Time
	ride.CancelledAt = cancelledAt.Time

	return &ride, nil
}

// RideEventRepository is a PostgreSQL implementation of repository.RideEventRepository.
type RideEventRepository struct {
	q Querier
}

// Append stores an event and fills in its sequence number.
func (r *RideEventRepository) Append(ctx context.Context, event *domain.RideEvent) error {
	query := `
		INSERT INTO ride_events (ride_id, from_status, to_status, actor_role, actor_id, revision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq
	`

	return r.q.QueryRowContext(ctx, query,
		event.RideID,
		nullString(string(event.From)),
		event.To,
		event.ActorRole,
		event.ActorID,
		event.Revision,
		event.CreatedAt,
	).Scan(&event.Seq)
}

// ListByRide returns a ride's events in sequence order.
func (r *RideEventRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.RideEvent, error) {
	query := `
		SELECT seq, ride_id, from_status, to_status, actor_role, actor_id, revision, created_at
		FROM ride_events WHERE ride_id = $1 ORDER BY seq
	`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.RideEvent
	for rows.Next() {
		var e domain.RideEvent
		var from sql.NullString
		if err := rows.Scan(&e.Seq, &e.RideID, &from, &e.To, &e.ActorRole, &e.ActorID, &e.Revision, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.From = domain.RideStatus(from.String)
		events = append(events, &e)
	}
	return events, rows.Err()
}
