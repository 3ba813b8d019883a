package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"drivio/internal/domain"
	"drivio/internal/logger"
	"drivio/internal/redis"
	"drivio/internal/repository"
)

// feedScanLimit bounds how many requested rides are read before the radius
// filter and ordering are applied.
const feedScanLimit = 500

// AvailabilityConfig holds the driver presence and feed tunables.
type AvailabilityConfig struct {
	StaleAfter     time.Duration
	HeartbeatTTL   time.Duration
	FeedRadiusKm   float64 // 0 disables the radius filter
	FeedLimit      int
	NearbyNotifyKm float64
	Clock          func() time.Time
}

func (c AvailabilityConfig) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// DriverService tracks driver presence and serves the availability feed.
type DriverService struct {
	locationStore redis.LocationStoreInterface
	presenceStore redis.PresenceStoreInterface
	rideRepo      repository.RideRepository
	cfg           AvailabilityConfig
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	locationStore redis.LocationStoreInterface,
	presenceStore redis.PresenceStoreInterface,
	rideRepo repository.RideRepository,
	cfg AvailabilityConfig,
) *DriverService {
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 50
	}
	return &DriverService{
		locationStore: locationStore,
		presenceStore: presenceStore,
		rideRepo:      rideRepo,
		cfg:           cfg,
	}
}

// HeartbeatRequest contains the parameters of a driver heartbeat.
type HeartbeatRequest struct {
	DriverID string
	Online   bool
	Lat      *float64
	Lng      *float64
}

// Heartbeat records that a driver is online, optionally with a position.
// Online=false takes the driver out of the feed immediately.
func (s *DriverService) Heartbeat(ctx context.Context, req HeartbeatRequest) (*domain.DriverAvailability, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	if !req.Online {
		if err := s.presenceStore.GoOffline(ctx, req.DriverID); err != nil {
			return nil, err
		}
		if err := s.locationStore.RemoveLocation(ctx, req.DriverID); err != nil {
			return nil, err
		}
		logger.FromContext(ctx).WithField("driver_id", req.DriverID).Info("driver went offline")
		return &domain.DriverAvailability{DriverID: req.DriverID}, nil
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, ErrInvalidLocation
	}
	if req.Lat != nil {
		if !isValidLatitude(*req.Lat) || !isValidLongitude(*req.Lng) {
			return nil, ErrInvalidLocation
		}
		if err := s.locationStore.UpdateLocation(ctx, req.DriverID, *req.Lat, *req.Lng); err != nil {
			return nil, err
		}
	}

	now := s.cfg.now()
	if err := s.presenceStore.Heartbeat(ctx, req.DriverID, now); err != nil {
		return nil, err
	}

	return s.GetAvailability(ctx, req.DriverID)
}

// GetAvailability returns the driver's presence as last recorded.
func (s *DriverService) GetAvailability(ctx context.Context, driverID string) (*domain.DriverAvailability, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	last, ok, err := s.presenceStore.LastHeartbeat(ctx, driverID)
	if err != nil {
		return nil, err
	}

	availability := &domain.DriverAvailability{
		DriverID:      driverID,
		Online:        ok,
		LastHeartbeat: last,
	}
	if !ok {
		return availability, nil
	}

	loc, err := s.locationStore.GetLocation(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		availability.HasPosition = true
		availability.Lat = loc.Lat
		availability.Lng = loc.Lng
	}
	return availability, nil
}

// EnsureCanAccept fails with ErrDriverOffline unless the driver heartbeated
// within the TTL.
func (s *DriverService) EnsureCanAccept(ctx context.Context, driverID string) error {
	availability, err := s.GetAvailability(ctx, driverID)
	if err != nil {
		return err
	}
	if !availability.IsFresh(s.cfg.now(), s.cfg.HeartbeatTTL) {
		return ErrDriverOffline
	}
	return nil
}

// FeedItem is one ride offered to a driver.
type FeedItem struct {
	Ride             *domain.Ride
	PickupDistanceKm *float64
}

// ListAvailable returns the requested rides a driver may accept. Offline or
// stale drivers and drivers already holding a ride get an empty feed.
//
// With a known driver position rides within FeedRadiusKm come first, nearest
// first; rides without pickup coordinates follow newest first. Without a
// position the feed is newest first.
func (s *DriverService) ListAvailable(ctx context.Context, driverID string) ([]FeedItem, error) {
	availability, err := s.GetAvailability(ctx, driverID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	if !availability.IsFresh(now, s.cfg.HeartbeatTTL) {
		return []FeedItem{}, nil
	}

	_, err = s.rideRepo.GetActiveByDriverID(ctx, driverID)
	if err == nil {
		return []FeedItem{}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	since := now.Add(-s.cfg.StaleAfter)
	rides, err := s.rideRepo.ListRequestedSince(ctx, since, feedScanLimit)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(rides))
	var unplaced []FeedItem
	for _, ride := range rides {
		if ride.Status != domain.RideStatusRequested || !ride.RequestedAt.After(since) {
			continue
		}

		if !availability.HasPosition || !ride.Pickup.HasCoordinates() {
			unplaced = append(unplaced, FeedItem{Ride: ride})
			continue
		}

		d := haversineKm(availability.Lat, availability.Lng, ride.Pickup.Lat, ride.Pickup.Lng)
		if s.cfg.FeedRadiusKm > 0 && d > s.cfg.FeedRadiusKm {
			continue
		}
		items = append(items, FeedItem{Ride: ride, PickupDistanceKm: &d})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return *items[i].PickupDistanceKm < *items[j].PickupDistanceKm
	})
	sort.SliceStable(unplaced, func(i, j int) bool {
		return unplaced[i].Ride.RequestedAt.After(unplaced[j].Ride.RequestedAt)
	})

	items = append(items, unplaced...)
	if len(items) > s.cfg.FeedLimit {
		items = items[:s.cfg.FeedLimit]
	}
	return items, nil
}

// NearbyOnlineDrivers returns fresh drivers within NearbyNotifyKm of a point.
// Errors are logged and yield an empty result; callers use it for best-effort
// notifications only.
func (s *DriverService) NearbyOnlineDrivers(ctx context.Context, lat, lng float64) []string {
	if s.cfg.NearbyNotifyKm <= 0 {
		return nil
	}

	nearby, err := s.locationStore.FindNearbyDrivers(ctx, lat, lng, s.cfg.NearbyNotifyKm)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("failed to look up nearby drivers")
		return nil
	}

	now := s.cfg.now()
	driverIDs := make([]string, 0, len(nearby))
	for _, loc := range nearby {
		last, ok, err := s.presenceStore.LastHeartbeat(ctx, loc.DriverID)
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithFields(logrus.Fields{
				"driver_id": loc.DriverID,
			}).Warn("failed to read driver heartbeat")
			continue
		}
		if ok && now.Sub(last) <= s.cfg.HeartbeatTTL {
			driverIDs = append(driverIDs, loc.DriverID)
		}
	}
	return driverIDs
}
