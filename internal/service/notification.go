package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"drivio/internal/domain"
	"drivio/internal/logger"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideRequested    NotificationType = "RIDE_REQUESTED"
	NotificationRideAccepted     NotificationType = "RIDE_ACCEPTED"
	NotificationRideStarted      NotificationType = "RIDE_STARTED"
	NotificationRideCompleted    NotificationType = "RIDE_COMPLETED"
	NotificationRideCancelled    NotificationType = "RIDE_CANCELLED"
	NotificationDriverLocation   NotificationType = "DRIVER_LOCATION"
	NotificationPaymentSucceeded NotificationType = "PAYMENT_SUCCEEDED"
	NotificationPaymentFailed    NotificationType = "PAYMENT_FAILED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType `json:"type"`
	RecipientID string           `json:"-"`
	RideID      string           `json:"ride_id,omitempty"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Data        map[string]any   `json:"data,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Publisher delivers a serialized notification to a user's live connections.
type Publisher interface {
	Publish(userID string, payload []byte)
}

// NotificationService handles notification delivery.
type NotificationService struct {
	publisher Publisher
}

// NewNotificationService creates a new NotificationService. A nil publisher
// only logs.
func NewNotificationService(publisher Publisher) *NotificationService {
	return &NotificationService{publisher: publisher}
}

// NotifyRideRequested notifies nearby drivers about a new ride request.
func (s *NotificationService) NotifyRideRequested(ctx context.Context, ride *domain.Ride, nearbyDriverIDs []string) {
	for _, driverID := range nearbyDriverIDs {
		s.send(ctx, Notification{
			Type:        NotificationRideRequested,
			RecipientID: driverID,
			RideID:      ride.ID,
			Title:       "New Ride Request",
			Message:     fmt.Sprintf("Pickup at %s, fare ₹%d", ride.Pickup.Address, ride.Fare),
			Data: map[string]any{
				"pickup_lat":  ride.Pickup.Lat,
				"pickup_lng":  ride.Pickup.Lng,
				"distance_km": ride.DistanceKm,
				"fare":        ride.Fare,
				"ride_class":  ride.Class,
			},
		})
	}
}

// NotifyRideAccepted notifies the rider that a driver accepted the ride.
func (s *NotificationService) NotifyRideAccepted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, Notification{
		Type:        NotificationRideAccepted,
		RecipientID: ride.RiderID,
		RideID:      ride.ID,
		Title:       "Driver Assigned",
		Message:     "A driver accepted your ride and is on the way",
		Data:        map[string]any{"driver_id": ride.DriverID},
	})
}

// NotifyRideStarted notifies the rider that the trip has started.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, Notification{
		Type:        NotificationRideStarted,
		RecipientID: ride.RiderID,
		RideID:      ride.ID,
		Title:       "Ride Started",
		Message:     "Your ride has started. Enjoy your trip!",
	})
}

// NotifyRideCompleted asks the rider to settle the fare.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, Notification{
		Type:        NotificationRideCompleted,
		RecipientID: ride.RiderID,
		RideID:      ride.ID,
		Title:       "Ride Completed",
		Message:     fmt.Sprintf("You have arrived. Total fare: ₹%d", ride.Fare),
		Data:        map[string]any{"fare": ride.Fare},
	})
}

// NotifyRideCancelled notifies the other party about a cancellation.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride) {
	recipientID := ride.RiderID
	message := "The driver has cancelled the ride"
	if ride.CancelledBy == domain.RoleRider {
		recipientID = ride.CancelledDriverID
		message = "The rider has cancelled the ride"
	}

	if recipientID == "" {
		return
	}

	s.send(ctx, Notification{
		Type:        NotificationRideCancelled,
		RecipientID: recipientID,
		RideID:      ride.ID,
		Title:       "Ride Cancelled",
		Message:     message,
		Data: map[string]any{
			"cancelled_by": ride.CancelledBy,
			"reason":       ride.CancelReason,
		},
	})
}

// NotifyDriverLocation forwards the assigned driver's position to the rider.
func (s *NotificationService) NotifyDriverLocation(ctx context.Context, ride *domain.Ride, lat, lng float64) {
	s.send(ctx, Notification{
		Type:        NotificationDriverLocation,
		RecipientID: ride.RiderID,
		RideID:      ride.ID,
		Title:       "Driver Location",
		Data:        map[string]any{"lat": lat, "lng": lng},
	})
}

// NotifyPaymentSucceeded notifies the rider and driver of a settled fare.
func (s *NotificationService) NotifyPaymentSucceeded(ctx context.Context, payment *domain.Payment, driverID string) {
	for _, recipient := range []string{payment.RiderID, driverID} {
		if recipient == "" {
			continue
		}
		s.send(ctx, Notification{
			Type:        NotificationPaymentSucceeded,
			RecipientID: recipient,
			RideID:      payment.RideID,
			Title:       "Payment Successful",
			Message:     fmt.Sprintf("Payment of ₹%d by %s received", payment.Amount, payment.Method),
			Data: map[string]any{
				"payment_id": payment.ID,
				"amount":     payment.Amount,
				"method":     payment.Method,
			},
		})
	}
}

// NotifyPaymentFailed notifies the rider that a card payment failed.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, payment *domain.Payment) {
	s.send(ctx, Notification{
		Type:        NotificationPaymentFailed,
		RecipientID: payment.RiderID,
		RideID:      payment.RideID,
		Title:       "Payment Failed",
		Message:     fmt.Sprintf("Payment of ₹%d failed. Please try again.", payment.Amount),
		Data:        map[string]any{"payment_id": payment.ID},
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	if s == nil {
		return
	}
	n.CreatedAt = time.Now().UTC()

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"notification": n.Type,
		"recipient_id": n.RecipientID,
		"ride_id":      n.RideID,
	}).Debug("sending notification")

	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("failed to encode notification")
		return
	}
	s.publisher.Publish(n.RecipientID, payload)
}
