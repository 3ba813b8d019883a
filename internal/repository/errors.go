package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrRiderActiveRideExists is returned when a second non-terminal ride is
	// written for the same rider.
	ErrRiderActiveRideExists = errors.New("rider active ride exists")

	// ErrDriverActiveRideExists is returned when a driver would hold two active rides.
	ErrDriverActiveRideExists = errors.New("driver active ride exists")

	// ErrDuplicateRedemption is returned when a single-use promo is redeemed twice by one rider.
	ErrDuplicateRedemption = errors.New("duplicate promo redemption")

	// ErrPaymentExists is returned when a second payment row is created for a ride.
	ErrPaymentExists = errors.New("ride already has a payment")

	// ErrPaymentAlreadySucceeded is returned when a succeeded payment would be rewritten.
	ErrPaymentAlreadySucceeded = errors.New("ride already has a succeeded payment")
)
