package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"drivio/internal/domain"
	"drivio/internal/logger"
	"drivio/internal/repository"
)

const (
	// maxTransitionAttempts bounds how often a transition is re-evaluated
	// after losing a revision race.
	maxTransitionAttempts = 3

	defaultHistoryLimit = 50
)

// DistanceEstimator resolves the driving distance between two locations.
type DistanceEstimator interface {
	DrivingDistanceKm(ctx context.Context, from, to domain.Location) (float64, error)
}

// RideConfig holds ride ledger settings.
type RideConfig struct {
	UpstreamTimeout time.Duration
	HistoryLimit    int
	Clock           func() time.Time
}

// RideService handles ride requests and their lifecycle.
type RideService struct {
	rideRepo            repository.RideRepository
	eventRepo           repository.RideEventRepository
	transactor          repository.Transactor
	driverService       *DriverService
	promoService        *PromoService
	distance            DistanceEstimator
	notificationService *NotificationService
	cfg                 RideConfig
}

// NewRideService creates a new RideService. distance may be nil, in which
// case straight-line distances are used.
func NewRideService(
	rideRepo repository.RideRepository,
	eventRepo repository.RideEventRepository,
	transactor repository.Transactor,
	driverService *DriverService,
	promoService *PromoService,
	distance DistanceEstimator,
	notificationService *NotificationService,
	cfg RideConfig,
) *RideService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &RideService{
		rideRepo:            rideRepo,
		eventRepo:           eventRepo,
		transactor:          transactor,
		driverService:       driverService,
		promoService:        promoService,
		distance:            distance,
		notificationService: notificationService,
		cfg:                 cfg,
	}
}

func (s *RideService) now() time.Time {
	if s.cfg.Clock != nil {
		return s.cfg.Clock()
	}
	return time.Now()
}

// CreateRideRequest contains the parameters for requesting a ride.
type CreateRideRequest struct {
	RiderID    string
	Pickup     domain.Location
	Dropoff    domain.Location
	Class      string
	DistanceKm *float64 // optional; resolved from the locations when nil
	PromoCode  string   // must have been applied beforehand
}

// CreateRide records a new ride in REQUESTED state with a server-computed
// fare. A promo code consumes one of the rider's unconsumed redemptions in
// the same transaction as the insert.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if err := validateLocation(req.Pickup, ErrInvalidPickupLocation); err != nil {
		return nil, err
	}
	if err := validateLocation(req.Dropoff, ErrInvalidDropoffLocation); err != nil {
		return nil, err
	}
	class, ok := domain.ParseRideClass(req.Class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRideClass, req.Class)
	}

	_, err := s.rideRepo.GetActiveByRiderID(ctx, req.RiderID)
	if err == nil {
		return nil, ErrRiderHasActiveRide
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	distanceKm, err := s.resolveDistance(ctx, req.Pickup, req.Dropoff, req.DistanceKm)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ride := &domain.Ride{
		ID:          uuid.New().String(),
		RiderID:     req.RiderID,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		Class:       class,
		DistanceKm:  distanceKm,
		Status:      domain.RideStatusRequested,
		Revision:    1,
		RequestedAt: now,
	}
	promoCode := domain.NormalizePromoCode(req.PromoCode)

	err = s.transactor.WithinTx(ctx, func(repos repository.Repositories) error {
		var redemption *domain.PromoRedemption
		if promoCode != "" {
			r, err := repos.Promos.ClaimRedemption(ctx, promoCode, req.RiderID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: code %s has not been applied", ErrInvalidPromo, promoCode)
				}
				return err
			}
			redemption = r
			ride.PromoCode = r.Code
			ride.DiscountPercent = r.DiscountPercent
		}

		fare, err := ComputeFare(ride.DistanceKm, class.Multiplier(), ride.DiscountPercent)
		if err != nil {
			return err
		}
		ride.Fare = fare

		if err := repos.Rides.Create(ctx, ride); err != nil {
			if errors.Is(err, repository.ErrRiderActiveRideExists) {
				return ErrRiderHasActiveRide
			}
			return err
		}

		if redemption != nil {
			if err := repos.Promos.AttachRedemption(ctx, redemption.ID, ride.ID); err != nil {
				return err
			}
		}

		return repos.Events.Append(ctx, &domain.RideEvent{
			RideID:    ride.ID,
			To:        domain.RideStatusRequested,
			ActorRole: domain.RoleRider,
			ActorID:   req.RiderID,
			Revision:  ride.Revision,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"ride_id":  ride.ID,
		"rider_id": ride.RiderID,
		"fare":     ride.Fare,
		"class":    ride.Class,
	}).Info("ride requested")

	if ride.Pickup.HasCoordinates() && s.driverService != nil {
		drivers := s.driverService.NearbyOnlineDrivers(ctx, ride.Pickup.Lat, ride.Pickup.Lng)
		s.notificationService.NotifyRideRequested(ctx, ride, drivers)
	}

	return ride, nil
}

// AcceptRide assigns a requested ride to the driver. Of several drivers
// racing for one ride exactly one succeeds; the others get ErrRideAlreadyTaken.
func (s *RideService) AcceptRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if err := s.driverService.EnsureCanAccept(ctx, driverID); err != nil {
		return nil, err
	}

	_, err := s.rideRepo.GetActiveByDriverID(ctx, driverID)
	if err == nil {
		return nil, ErrDriverHasActiveRide
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	ride, err := s.transition(ctx, rideID, TransitionRequest{
		Action: RideActionAccept,
		Actor:  domain.Identity{ID: driverID, Role: domain.RoleDriver},
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.NotifyRideAccepted(ctx, ride)
	return ride, nil
}

// StartRide moves an accepted ride to IN_PROGRESS.
func (s *RideService) StartRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.transition(ctx, rideID, TransitionRequest{
		Action: RideActionStart,
		Actor:  domain.Identity{ID: driverID, Role: domain.RoleDriver},
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.NotifyRideStarted(ctx, ride)
	return ride, nil
}

// CompleteRide moves an in-progress ride to COMPLETED. The fare stays as
// computed at creation.
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.transition(ctx, rideID, TransitionRequest{
		Action: RideActionComplete,
		Actor:  domain.Identity{ID: driverID, Role: domain.RoleDriver},
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.NotifyRideCompleted(ctx, ride)
	return ride, nil
}

// CancelRideRequest contains the parameters for cancelling a ride.
type CancelRideRequest struct {
	RideID string
	Actor  domain.Identity
	Reason string // code or display label; optional before acceptance
}

// CancelRide cancels a requested or accepted ride.
func (s *RideService) CancelRide(ctx context.Context, req CancelRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	var reason domain.CancelReason
	if req.Reason != "" {
		parsed, ok := domain.ParseCancelReason(req.Reason)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCancelReason, req.Reason)
		}
		reason = parsed
	}

	ride, err := s.transition(ctx, req.RideID, TransitionRequest{
		Action: RideActionCancel,
		Actor:  req.Actor,
		Reason: reason,
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.NotifyRideCancelled(ctx, ride)
	return ride, nil
}

// transition applies req to the stored ride with a revision guarded write
// and appends the matching event. When another writer wins the race the
// ride is reloaded and the transition re-evaluated against the new state.
func (s *RideService) transition(ctx context.Context, rideID string, req TransitionRequest) (*domain.Ride, error) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"ride_id":  rideID,
		"action":   req.Action,
		"actor_id": req.Actor.ID,
	})

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		ride, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}

		req.At = s.now()
		next, err := ApplyTransition(ride, req)
		if err != nil {
			return nil, err
		}

		swapped := false
		err = s.transactor.WithinTx(ctx, func(repos repository.Repositories) error {
			ok, err := repos.Rides.CompareAndSwap(ctx, next, ride.Revision)
			if err != nil {
				if errors.Is(err, repository.ErrDriverActiveRideExists) {
					return ErrDriverHasActiveRide
				}
				return err
			}
			if !ok {
				return nil
			}
			swapped = true

			return repos.Events.Append(ctx, &domain.RideEvent{
				RideID:    next.ID,
				From:      ride.Status,
				To:        next.Status,
				ActorRole: req.Actor.Role,
				ActorID:   req.Actor.ID,
				Revision:  next.Revision,
				CreatedAt: req.At,
			})
		})
		if err != nil {
			return nil, err
		}

		if swapped {
			log.WithField("status", next.Status).Info("ride transitioned")
			return next, nil
		}
		log.WithField("attempt", attempt+1).Debug("ride revision changed, re-evaluating")
	}

	return nil, ErrConcurrentModification
}

// GetRide returns a ride visible to the actor: its participants, and any
// driver while the ride is still requested.
func (s *RideService) GetRide(ctx context.Context, rideID string, actor domain.Identity) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.IsParticipant(actor.ID) {
		return ride, nil
	}
	if actor.Role == domain.RoleDriver && ride.Status == domain.RideStatusRequested {
		return ride, nil
	}
	return nil, ErrForbidden
}

// ListEvents returns the transition log of a ride visible to the actor.
func (s *RideService) ListEvents(ctx context.Context, rideID string, actor domain.Identity) ([]*domain.RideEvent, error) {
	if _, err := s.GetRide(ctx, rideID, actor); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByRide(ctx, rideID)
}

// HistoryRequest selects whose rides to list. Client asserted IDs must match
// the actor.
type HistoryRequest struct {
	Actor    domain.Identity
	RiderID  string
	DriverID string
}

// History returns the actor's rides, newest first.
func (s *RideService) History(ctx context.Context, req HistoryRequest) ([]*domain.Ride, error) {
	if req.Actor.ID == "" {
		return nil, ErrForbidden
	}

	switch {
	case req.RiderID != "":
		if req.Actor.Role != domain.RoleRider || req.RiderID != req.Actor.ID {
			return nil, ErrForbidden
		}
		return s.rideRepo.ListByRider(ctx, req.RiderID, s.cfg.HistoryLimit)

	case req.DriverID != "":
		if req.Actor.Role != domain.RoleDriver || req.DriverID != req.Actor.ID {
			return nil, ErrForbidden
		}
		return s.rideRepo.ListByDriver(ctx, req.DriverID, s.cfg.HistoryLimit)

	case req.Actor.Role == domain.RoleDriver:
		return s.rideRepo.ListByDriver(ctx, req.Actor.ID, s.cfg.HistoryLimit)

	default:
		return s.rideRepo.ListByRider(ctx, req.Actor.ID, s.cfg.HistoryLimit)
	}
}

// AwaitingPayment returns the rider's completed rides that still lack a
// succeeded payment.
func (s *RideService) AwaitingPayment(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.rideRepo.ListAwaitingPayment(ctx, riderID)
}

// LocationUpdateRequest contains a driver's position during a ride.
type LocationUpdateRequest struct {
	RideID   string
	DriverID string
	Lat      float64
	Lng      float64
}

// UpdateDriverLocation records the assigned driver's position, refreshes
// their heartbeat and forwards the position to the rider.
func (s *RideService) UpdateDriverLocation(ctx context.Context, req LocationUpdateRequest) error {
	if req.RideID == "" {
		return ErrInvalidRideID
	}
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return err
	}
	if ride.DriverID != req.DriverID {
		return ErrForbidden
	}
	if ride.Status != domain.RideStatusAccepted && ride.Status != domain.RideStatusInProgress {
		return fmt.Errorf("%w: ride is %s", ErrInvalidTransition, ride.Status)
	}

	if _, err := s.driverService.Heartbeat(ctx, HeartbeatRequest{
		DriverID: req.DriverID,
		Online:   true,
		Lat:      &req.Lat,
		Lng:      &req.Lng,
	}); err != nil {
		return err
	}

	s.notificationService.NotifyDriverLocation(ctx, ride, req.Lat, req.Lng)
	return nil
}

// EstimateRequest contains the parameters of a fare quote.
type EstimateRequest struct {
	Pickup     domain.Location
	Dropoff    domain.Location
	Class      string
	DistanceKm *float64
	PromoCode  string
}

// FareEstimate is a fare quote. It does not reserve anything.
type FareEstimate struct {
	DistanceKm      float64
	Class           domain.RideClass
	Multiplier      float64
	DiscountPercent int
	BaseFare        int64
	Fare            int64
}

// EstimateFare quotes the fare a ride request with the same inputs would be
// charged.
func (s *RideService) EstimateFare(ctx context.Context, req EstimateRequest) (*FareEstimate, error) {
	class, ok := domain.ParseRideClass(req.Class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRideClass, req.Class)
	}
	if req.DistanceKm == nil {
		if err := validateLocation(req.Pickup, ErrInvalidPickupLocation); err != nil {
			return nil, err
		}
		if err := validateLocation(req.Dropoff, ErrInvalidDropoffLocation); err != nil {
			return nil, err
		}
	}

	distanceKm, err := s.resolveDistance(ctx, req.Pickup, req.Dropoff, req.DistanceKm)
	if err != nil {
		return nil, err
	}

	discount := 0
	if req.PromoCode != "" && s.promoService != nil {
		discount, err = s.promoService.LookupDiscount(ctx, req.PromoCode)
		if err != nil {
			return nil, err
		}
	}

	baseFare, err := ComputeFare(distanceKm, class.Multiplier(), 0)
	if err != nil {
		return nil, err
	}
	fare, err := ComputeFare(distanceKm, class.Multiplier(), discount)
	if err != nil {
		return nil, err
	}

	return &FareEstimate{
		DistanceKm:      distanceKm,
		Class:           class,
		Multiplier:      class.Multiplier(),
		DiscountPercent: discount,
		BaseFare:        baseFare,
		Fare:            fare,
	}, nil
}

// resolveDistance returns the client supplied distance, else the routed
// driving distance, else the straight-line distance between coordinates.
// A routing timeout fails the request; other routing failures fall back to
// the straight line when coordinates exist.
func (s *RideService) resolveDistance(ctx context.Context, pickup, dropoff domain.Location, given *float64) (float64, error) {
	if given != nil {
		d := *given
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidDistance, d)
		}
		return d, nil
	}

	haveCoords := pickup.HasCoordinates() && dropoff.HasCoordinates()

	if s.distance != nil {
		callCtx, cancel := withUpstreamTimeout(ctx, s.cfg.UpstreamTimeout)
		d, err := s.distance.DrivingDistanceKm(callCtx, pickup, dropoff)
		cancel()
		if err == nil {
			return d, nil
		}

		upstreamErr := upstreamError(callCtx, err)
		if errors.Is(upstreamErr, ErrUpstreamTimeout) {
			return 0, upstreamErr
		}
		logger.FromContext(ctx).WithError(err).Warn("routing distance unavailable, using straight line")
	}

	if !haveCoords {
		return 0, fmt.Errorf("%w: distance_km or coordinates are required", ErrInvalidDistance)
	}
	return haversineKm(pickup.Lat, pickup.Lng, dropoff.Lat, dropoff.Lng), nil
}

func validateLocation(loc domain.Location, invalid error) error {
	if loc.Address == "" && !loc.HasCoordinates() {
		return invalid
	}
	if !isValidLatitude(loc.Lat) || !isValidLongitude(loc.Lng) {
		return invalid
	}
	return nil
}
