package service

import "errors"

// Validation errors.
var (
	// ErrInvalidDistance is returned when a distance is negative or not finite.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrInvalidMultiplier is returned when a ride-class multiplier is not positive.
	ErrInvalidMultiplier = errors.New("invalid fare multiplier")

	// ErrInvalidDiscount is returned when a discount lies outside 0..100.
	ErrInvalidDiscount = errors.New("invalid discount percent")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidPickupLocation is returned when the pickup is missing or out of range.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropoffLocation is returned when the dropoff is missing or out of range.
	ErrInvalidDropoffLocation = errors.New("invalid dropoff location")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidRideClass is returned for an unknown ride class.
	ErrInvalidRideClass = errors.New("invalid ride class")

	// ErrInvalidCancelReason is returned for an unknown or missing cancel reason.
	ErrInvalidCancelReason = errors.New("invalid cancel reason")

	// ErrInvalidPaymentAmount is returned when payment amount is not positive.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidPaymentMethod is returned when payment method is invalid.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidPromoCode is returned when the promo code is empty.
	ErrInvalidPromoCode = errors.New("invalid promo code")
)

// Conflict errors.
var (
	// ErrRiderHasActiveRide is returned when the rider already has a non-terminal ride.
	ErrRiderHasActiveRide = errors.New("rider already has an active ride")

	// ErrDriverHasActiveRide is returned when the driver is already assigned to an active ride.
	ErrDriverHasActiveRide = errors.New("driver already has an active ride")

	// ErrRideAlreadyTaken is returned when another driver accepted the ride first.
	ErrRideAlreadyTaken = errors.New("ride already taken by another driver")

	// ErrAlreadyPaid is returned when the ride already has a succeeded payment.
	ErrAlreadyPaid = errors.New("ride already paid")

	// ErrSettlementInProgress is returned when another settlement holds the ride lock.
	ErrSettlementInProgress = errors.New("settlement already in progress for this ride")

	// ErrDriverOffline is returned when an offline or stale driver tries to accept.
	ErrDriverOffline = errors.New("driver is offline")

	// ErrInvalidTransition is returned when the ride status does not allow the operation.
	ErrInvalidTransition = errors.New("invalid ride status transition")

	// ErrConcurrentModification is returned when a ride changed between read and write.
	ErrConcurrentModification = errors.New("ride was modified concurrently, retry")
)

// Business rule errors surfaced verbatim to clients.
var (
	// ErrInvalidPromo is returned when a promo cannot be applied or consumed.
	ErrInvalidPromo = errors.New("invalid promo")

	// ErrFareMismatch is returned when the settled amount differs from the ride fare.
	ErrFareMismatch = errors.New("amount does not match ride fare")
)

// Authorization errors.
var (
	// ErrForbidden is returned when the caller is not allowed to act on the resource.
	ErrForbidden = errors.New("not allowed to perform this action")
)

// Upstream errors.
var (
	// ErrUpstreamTimeout is returned when an external collaborator did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream service timed out")

	// ErrUpstreamUnavailable is returned when an external collaborator failed.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
