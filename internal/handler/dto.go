package handler

import (
	"strings"
	"time"

	"drivio/internal/domain"
	"drivio/internal/service"
)

// RideResponse is the JSON form of a ride.
type RideResponse struct {
	ID              string     `json:"id"`
	RiderID         string     `json:"rider_id"`
	DriverID        string     `json:"driver_id,omitempty"`
	PickupLocation  string     `json:"pickup_location"`
	PickupLat       *float64   `json:"pickup_lat,omitempty"`
	PickupLng       *float64   `json:"pickup_lng,omitempty"`
	DropoffLocation string     `json:"dropoff_location"`
	DropoffLat      *float64   `json:"dropoff_lat,omitempty"`
	DropoffLng      *float64   `json:"dropoff_lng,omitempty"`
	RideClass       string     `json:"ride_class"`
	DistanceKm      float64    `json:"distance_km"`
	Fare            int64      `json:"fare"`
	DiscountPercent int        `json:"discount_percent"`
	PromoCode       string     `json:"promo_code,omitempty"`
	Status          string     `json:"status"`
	Revision        int        `json:"revision"`
	RequestedAt     time.Time  `json:"requested_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	CancelledBy     string     `json:"cancelled_by,omitempty"`

	// Set in the availability feed only.
	PickupDistanceKm *float64 `json:"pickup_distance_km,omitempty"`
}

func newRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:              ride.ID,
		RiderID:         ride.RiderID,
		DriverID:        ride.DriverID,
		PickupLocation:  ride.Pickup.Address,
		DropoffLocation: ride.Dropoff.Address,
		RideClass:       string(ride.Class),
		DistanceKm:      ride.DistanceKm,
		Fare:            ride.Fare,
		DiscountPercent: ride.DiscountPercent,
		PromoCode:       ride.PromoCode,
		Status:          rideStatus(ride.Status),
		Revision:        ride.Revision,
		RequestedAt:     ride.RequestedAt,
		AcceptedAt:      optionalTime(ride.AcceptedAt),
		StartedAt:       optionalTime(ride.StartedAt),
		CompletedAt:     optionalTime(ride.CompletedAt),
		CancelledAt:     optionalTime(ride.CancelledAt),
		CancelReason:    string(ride.CancelReason),
		CancelledBy:     string(ride.CancelledBy),
	}
	if ride.Pickup.HasCoordinates() {
		resp.PickupLat, resp.PickupLng = &ride.Pickup.Lat, &ride.Pickup.Lng
	}
	if ride.Dropoff.HasCoordinates() {
		resp.DropoffLat, resp.DropoffLng = &ride.Dropoff.Lat, &ride.Dropoff.Lng
	}
	return resp
}

func newRideResponses(rides []*domain.Ride) []RideResponse {
	resp := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		resp = append(resp, newRideResponse(r))
	}
	return resp
}

func newFeedResponses(items []service.FeedItem) []RideResponse {
	resp := make([]RideResponse, 0, len(items))
	for _, item := range items {
		r := newRideResponse(item.Ride)
		r.PickupDistanceKm = item.PickupDistanceKm
		resp = append(resp, r)
	}
	return resp
}

// RideEventResponse is the JSON form of a ride transition.
type RideEventResponse struct {
	Seq       int64     `json:"seq"`
	RideID    string    `json:"ride_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	ActorRole string    `json:"actor_role"`
	ActorID   string    `json:"actor_id"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
}

func newRideEventResponses(events []*domain.RideEvent) []RideEventResponse {
	resp := make([]RideEventResponse, 0, len(events))
	for _, e := range events {
		from := ""
		if e.From != "" {
			from = rideStatus(e.From)
		}
		resp = append(resp, RideEventResponse{
			Seq:       e.Seq,
			RideID:    e.RideID,
			From:      from,
			To:        rideStatus(e.To),
			ActorRole: string(e.ActorRole),
			ActorID:   e.ActorID,
			Revision:  e.Revision,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}

// PaymentResponse is the JSON form of a payment.
type PaymentResponse struct {
	ID           string    `json:"id"`
	RideID       string    `json:"ride_id"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Method       string    `json:"method"`
	Status       string    `json:"status"`
	ExternalRef  string    `json:"external_ref,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID,
		RideID:       p.RideID,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Method:       string(p.Method),
		Status:       strings.ToLower(string(p.Status)),
		ExternalRef:  p.ExternalRef,
		ClientSecret: p.ClientSecret,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// rideStatus renders a status the way clients spell it ("in-progress").
func rideStatus(s domain.RideStatus) string {
	return strings.ReplaceAll(strings.ToLower(string(s)), "_", "-")
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// location builds a domain location from an address and optional coordinates.
func location(address string, lat, lng *float64) (domain.Location, bool) {
	loc := domain.Location{Address: strings.TrimSpace(address)}
	if (lat == nil) != (lng == nil) {
		return loc, false
	}
	if lat != nil {
		loc.Lat, loc.Lng = *lat, *lng
	}
	return loc, true
}

// rideClass picks the ride class from ride_class or its older ride_type
// spelling. Conflicting values are rejected.
func rideClass(class, rideType string) (string, bool) {
	class, rideType = strings.TrimSpace(class), strings.TrimSpace(rideType)
	switch {
	case class == "":
		return rideType, true
	case rideType == "" || strings.EqualFold(class, rideType):
		return class, true
	}
	return "", false
}
