package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drivio/internal/domain"
	"drivio/internal/repository"
)

// ReceiptService builds receipts for completed rides.
type ReceiptService struct {
	rideService *RideService
	paymentRepo repository.PaymentRepository
	currency    string
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(rideService *RideService, paymentRepo repository.PaymentRepository, currency string) *ReceiptService {
	if currency == "" {
		currency = "INR"
	}
	return &ReceiptService{
		rideService: rideService,
		paymentRepo: paymentRepo,
		currency:    currency,
	}
}

// GenerateReceipt returns the receipt of a completed ride visible to actor.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, rideID string, actor domain.Identity) (*domain.Receipt, error) {
	ride, err := s.rideService.GetRide(ctx, rideID, actor)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, fmt.Errorf("%w: ride is %s", ErrInvalidTransition, ride.Status)
	}

	baseFare, err := ComputeFare(ride.DistanceKm, ride.Class.Multiplier(), 0)
	if err != nil {
		return nil, err
	}

	receipt := &domain.Receipt{
		RideID:          ride.ID,
		RiderID:         ride.RiderID,
		DriverID:        ride.DriverID,
		Pickup:          ride.Pickup,
		Dropoff:         ride.Dropoff,
		Class:           ride.Class,
		Multiplier:      ride.Class.Multiplier(),
		DistanceKm:      ride.DistanceKm,
		BaseFare:        baseFare,
		PromoCode:       ride.PromoCode,
		DiscountPercent: ride.DiscountPercent,
		TotalFare:       ride.Fare,
		Currency:        s.currency,
		PaymentStatus:   domain.PaymentStatusPending,
		StartedAt:       ride.StartedAt,
		CompletedAt:     ride.CompletedAt,
		IssuedAt:        time.Now(),
	}
	if baseFare > ride.Fare {
		receipt.DiscountAmount = baseFare - ride.Fare
	}
	if !ride.StartedAt.IsZero() && ride.CompletedAt.After(ride.StartedAt) {
		receipt.Duration = ride.CompletedAt.Sub(ride.StartedAt)
	}

	p, err := s.paymentRepo.GetByRideID(ctx, ride.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if p != nil {
		receipt.PaymentMethod = p.Method
		receipt.PaymentStatus = p.Status
	}

	return receipt, nil
}

// FormatReceipt renders the receipt as plain text (for email/print).
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	method := string(receipt.PaymentMethod)
	if method == "" {
		method = "-"
	}
	promo := ""
	if receipt.PromoCode != "" {
		promo = fmt.Sprintf("Promo %s (%d%%):   -%d %s\n", receipt.PromoCode, receipt.DiscountPercent, receipt.DiscountAmount, receipt.Currency)
	}

	return `
=====================================
        DRIVIO RIDE RECEIPT
=====================================
Ride ID: ` + receipt.RideID + `
Date: ` + receipt.CompletedAt.Format("Jan 02, 2006 3:04 PM") + `

TRIP DETAILS
-------------------------------------
Pickup:   ` + locationLine(receipt.Pickup) + `
Dropoff:  ` + locationLine(receipt.Dropoff) + `
Duration: ` + formatDuration(receipt.Duration) + `
Distance: ` + fmt.Sprintf("%.2f", receipt.DistanceKm) + ` km

FARE BREAKDOWN
-------------------------------------
Class:       ` + fmt.Sprintf("%s (%.2fx)", receipt.Class, receipt.Multiplier) + `
Base Fare:   ` + fmt.Sprintf("%d %s", receipt.BaseFare, receipt.Currency) + `
` + promo + `-------------------------------------
TOTAL:       ` + fmt.Sprintf("%d %s", receipt.TotalFare, receipt.Currency) + `

PAYMENT
-------------------------------------
Method: ` + method + `
Status: ` + string(receipt.PaymentStatus) + `

=====================================
     Thank you for riding with us!
=====================================
`
}

func locationLine(loc domain.Location) string {
	if loc.Address != "" {
		return loc.Address
	}
	return fmt.Sprintf("(%.5f, %.5f)", loc.Lat, loc.Lng)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d.Minutes()))
}
