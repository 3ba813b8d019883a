package domain

import (
	"strings"
	"time"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "REQUESTED"
	RideStatusAccepted   RideStatus = "ACCEPTED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition can leave the status.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// IsActive reports whether the ride still occupies its rider.
func (s RideStatus) IsActive() bool {
	return s == RideStatusRequested || s == RideStatusAccepted || s == RideStatusInProgress
}

// RideClass is the vehicle class a rider books.
type RideClass string

const (
	RideClassDriviox RideClass = "driviox"
	RideClassComfort RideClass = "comfort"
	RideClassXL      RideClass = "xl"
)

var rideClassMultipliers = map[RideClass]float64{
	RideClassDriviox: 1.0,
	RideClassComfort: 1.25,
	RideClassXL:      1.5,
}

// ParseRideClass normalizes a client supplied class. Empty means driviox.
func ParseRideClass(s string) (RideClass, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RideClassDriviox, true
	}
	class := RideClass(s)
	_, ok := rideClassMultipliers[class]
	return class, ok
}

// Multiplier returns the fare multiplier for the class.
func (c RideClass) Multiplier() float64 {
	if m, ok := rideClassMultipliers[c]; ok {
		return m
	}
	return 1.0
}

// CancelReason is a normalized cancellation reason code.
type CancelReason string

const (
	CancelReasonChangeOfPlans   CancelReason = "change_of_plans"
	CancelReasonDriverTooFar    CancelReason = "driver_too_far"
	CancelReasonPriceTooHigh    CancelReason = "price_too_high"
	CancelReasonIncorrectPickup CancelReason = "incorrect_pickup_location"
	CancelReasonRiderNoShow     CancelReason = "rider_no_show"
	CancelReasonOther           CancelReason = "other"
)

var cancelReasons = map[CancelReason]struct{}{
	CancelReasonChangeOfPlans:   {},
	CancelReasonDriverTooFar:    {},
	CancelReasonPriceTooHigh:    {},
	CancelReasonIncorrectPickup: {},
	CancelReasonRiderNoShow:     {},
	CancelReasonOther:           {},
}

// ParseCancelReason accepts either a code or its display label
// ("Change of plans" -> change_of_plans).
func ParseCancelReason(s string) (CancelReason, bool) {
	code := strings.ToLower(strings.TrimSpace(s))
	code = strings.Join(strings.Fields(code), "_")
	reason := CancelReason(code)
	_, ok := cancelReasons[reason]
	return reason, ok
}

// Location is a named point.
type Location struct {
	Address string
	Lat     float64
	Lng     float64
}

// HasCoordinates reports whether the location carries a usable position.
func (l Location) HasCoordinates() bool {
	return l.Lat != 0 || l.Lng != 0
}

// Ride represents a ride request and its lifecycle.
type Ride struct {
	ID              string
	RiderID         string
	DriverID        string
	Pickup          Location
	Dropoff         Location
	Class           RideClass
	DistanceKm      float64
	Fare            int64 // whole currency units, fixed at creation
	DiscountPercent int
	PromoCode       string
	Status          RideStatus
	Revision        int
	RequestedAt     time.Time
	AcceptedAt      time.Time
	StartedAt       time.Time
	CompletedAt     time.Time
	CancelledAt     time.Time
	CancelReason    CancelReason
	CancelledBy     Role

	// CancelledDriverID keeps the driver that held the ride when it was
	// cancelled after acceptance; DriverID is cleared on cancel.
	CancelledDriverID string
}

// IsParticipant reports whether the user is the ride's rider or a driver
// that held it.
func (r *Ride) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return r.RiderID == userID || r.DriverID == userID || r.CancelledDriverID == userID
}
