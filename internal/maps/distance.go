// Package maps resolves driving distances through the Google Maps
// Distance Matrix API.
package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"drivio/internal/domain"
)

// ErrNoRoute is returned when the API finds no drivable route.
var ErrNoRoute = errors.New("no route found")

// DistanceService answers point-to-point driving distance queries.
type DistanceService struct {
	client *maps.Client
}

// NewDistanceService creates a DistanceService with the given API key.
func NewDistanceService(apiKey string) (*DistanceService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DistanceService{client: client}, nil
}

// DrivingDistanceKm returns the driving distance between two locations.
// Coordinates are preferred over addresses when both are present.
func (s *DistanceService) DrivingDistanceKm(ctx context.Context, from, to domain.Location) (float64, error) {
	req := &maps.DistanceMatrixRequest{
		Origins:      []string{waypoint(from)},
		Destinations: []string{waypoint(to)},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	}

	resp, err := s.client.DistanceMatrix(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("distance matrix request failed: %w", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, ErrNoRoute
	}
	element := resp.Rows[0].Elements[0]
	if element.Status != "OK" {
		return 0, fmt.Errorf("%w: %s", ErrNoRoute, element.Status)
	}

	return float64(element.Distance.Meters) / 1000, nil
}

func waypoint(l domain.Location) string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%f,%f", l.Lat, l.Lng)
	}
	return l.Address
}
