package domain

import "time"

// Receipt is the fare breakdown of a completed ride.
type Receipt struct {
	RideID          string
	RiderID         string
	DriverID        string
	Pickup          Location
	Dropoff         Location
	Class           RideClass
	Multiplier      float64
	DistanceKm      float64
	BaseFare        int64 // before discount
	PromoCode       string
	DiscountPercent int
	DiscountAmount  int64
	TotalFare       int64
	Currency        string
	PaymentMethod   PaymentMethod // empty until a payment exists
	PaymentStatus   PaymentStatus
	Duration        time.Duration
	StartedAt       time.Time
	CompletedAt     time.Time
	IssuedAt        time.Time
}
