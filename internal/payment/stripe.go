package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProcessor collects card payments through Stripe PaymentIntents.
type StripeProcessor struct {
	client *client.API
}

// NewStripeProcessor creates a Stripe backed processor.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeProcessor{client: sc}
}

// Name returns the processor name.
func (s *StripeProcessor) Name() string { return "stripe" }

// CreateIntent creates an unconfirmed PaymentIntent; the client confirms it
// with the returned client secret.
func (s *StripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minorUnits(req.Amount)),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String("Ride " + req.RideID),
	}
	params.Context = ctx
	params.AddMetadata("ride_id", req.RideID)
	params.AddMetadata("rider_id", req.RiderID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return stripeIntent(pi), nil
}

// GetIntent retrieves a PaymentIntent.
func (s *StripeProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.client.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	return stripeIntent(pi), nil
}

// CancelIntent cancels a PaymentIntent that has not succeeded.
func (s *StripeProcessor) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := s.client.PaymentIntents.Cancel(id, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			switch stripeErr.Code {
			case stripe.ErrorCodeResourceMissing:
				return ErrIntentNotFound
			case stripe.ErrorCodePaymentIntentUnexpectedState:
				return ErrIntentNotCancellable
			}
		}
		return fmt.Errorf("failed to cancel payment intent: %w", err)
	}
	return nil
}

func stripeIntent(pi *stripe.PaymentIntent) *Intent {
	status := IntentStatusPending
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		status = IntentStatusCancelled
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       status,
		Amount:       pi.Amount / 100,
		Currency:     strings.ToUpper(string(pi.Currency)),
	}
}
