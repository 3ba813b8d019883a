// Package payment adapts card payment processors behind a two-phase
// intent API: create an intent, let the client confirm it, then poll.
package payment

import (
	"context"
	"errors"
	"fmt"

	"drivio/internal/config"
)

// IntentStatus is the processor-neutral state of a payment intent.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"
	IntentStatusCancelled IntentStatus = "cancelled"
)

// IntentRequest describes a charge to collect.
type IntentRequest struct {
	Amount   int64 // whole currency units
	Currency string
	RideID   string
	RiderID  string

	// IdempotencyKey is unique per settlement attempt.
	IdempotencyKey string
}

// Intent is a processor-side payment intent or order.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
	Currency     string
}

// Processor is a card payment processor.
type Processor interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error
}

// ErrIntentNotFound is returned when the processor has no such intent.
var ErrIntentNotFound = errors.New("payment intent not found")

// ErrIntentNotCancellable is returned when an intent has already been paid.
var ErrIntentNotCancellable = errors.New("payment intent already paid")

// NewProcessor builds the processor selected by configuration.
func NewProcessor(cfg config.PaymentsConfig) (Processor, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockProcessor(), nil
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, errors.New("stripe secret key is required")
		}
		return NewStripeProcessor(cfg.StripeSecretKey), nil
	case "razorpay":
		if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
			return nil, errors.New("razorpay key id and secret are required")
		}
		return NewRazorpayProcessor(cfg.RazorpayKeyID, cfg.RazorpayKeySecret), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// minorUnits converts whole rupees to paise.
func minorUnits(amount int64) int64 {
	return amount * 100
}
