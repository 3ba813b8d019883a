package service

import (
	"fmt"
	"time"

	"drivio/internal/domain"
)

// RideAction is an operation that moves a ride between statuses.
type RideAction string

const (
	RideActionAccept   RideAction = "accept"
	RideActionStart    RideAction = "start"
	RideActionComplete RideAction = "complete"
	RideActionCancel   RideAction = "cancel"
)

// TransitionRequest describes one attempted status change.
type TransitionRequest struct {
	Action RideAction
	Actor  domain.Identity
	Reason domain.CancelReason // cancel only
	At     time.Time
}

// ApplyTransition validates req against the ride's current status and the
// actor, and returns the next state of the ride. The input is not modified.
//
// Allowed moves:
//
//	REQUESTED   -> ACCEPTED     any driver
//	REQUESTED   -> CANCELLED    the ride's rider
//	ACCEPTED    -> IN_PROGRESS  the assigned driver
//	ACCEPTED    -> CANCELLED    the rider or the assigned driver, reason required
//	IN_PROGRESS -> COMPLETED    the assigned driver
func ApplyTransition(ride *domain.Ride, req TransitionRequest) (*domain.Ride, error) {
	if ride == nil {
		return nil, ErrInvalidRideID
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}

	next := *ride

	switch req.Action {
	case RideActionAccept:
		if req.Actor.Role != domain.RoleDriver {
			return nil, ErrForbidden
		}
		if ride.Status != domain.RideStatusRequested {
			if ride.DriverID != "" && ride.DriverID != req.Actor.ID {
				return nil, ErrRideAlreadyTaken
			}
			return nil, invalidTransition(ride.Status, domain.RideStatusAccepted)
		}
		next.Status = domain.RideStatusAccepted
		next.DriverID = req.Actor.ID
		next.AcceptedAt = req.At

	case RideActionStart:
		if ride.Status != domain.RideStatusAccepted {
			return nil, invalidTransition(ride.Status, domain.RideStatusInProgress)
		}
		if !isAssignedDriver(ride, req.Actor) {
			return nil, ErrForbidden
		}
		next.Status = domain.RideStatusInProgress
		next.StartedAt = req.At

	case RideActionComplete:
		if ride.Status != domain.RideStatusInProgress {
			return nil, invalidTransition(ride.Status, domain.RideStatusCompleted)
		}
		if !isAssignedDriver(ride, req.Actor) {
			return nil, ErrForbidden
		}
		next.Status = domain.RideStatusCompleted
		next.CompletedAt = req.At

	case RideActionCancel:
		if err := applyCancel(ride, &next, req); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, req.Action)
	}

	return &next, nil
}

func applyCancel(ride, next *domain.Ride, req TransitionRequest) error {
	isRider := req.Actor.Role == domain.RoleRider && ride.RiderID == req.Actor.ID
	isDriver := isAssignedDriver(ride, req.Actor)
	if !isRider && !isDriver {
		return ErrForbidden
	}

	reason := req.Reason
	switch ride.Status {
	case domain.RideStatusRequested:
		if !isRider {
			return ErrForbidden
		}
		if reason == "" {
			reason = domain.CancelReasonOther
		}
	case domain.RideStatusAccepted:
		if reason == "" {
			return fmt.Errorf("%w: a reason is required once a driver is assigned", ErrInvalidCancelReason)
		}
	default:
		return invalidTransition(ride.Status, domain.RideStatusCancelled)
	}

	next.Status = domain.RideStatusCancelled
	next.CancelledAt = req.At
	next.CancelReason = reason
	next.CancelledBy = req.Actor.Role
	if ride.DriverID != "" {
		next.CancelledDriverID = ride.DriverID
		next.DriverID = ""
	}
	return nil
}

func isAssignedDriver(ride *domain.Ride, actor domain.Identity) bool {
	return actor.Role == domain.RoleDriver && ride.DriverID != "" && ride.DriverID == actor.ID
}

func invalidTransition(from, to domain.RideStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
