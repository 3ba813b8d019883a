package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/razorpay/razorpay-go"
)

// RazorpayProcessor collects card payments through Razorpay orders. The
// order id doubles as the client secret handed to Razorpay Checkout.
type RazorpayProcessor struct {
	client *razorpay.Client
}

// NewRazorpayProcessor creates a Razorpay backed processor.
func NewRazorpayProcessor(keyID, keySecret string) *RazorpayProcessor {
	return &RazorpayProcessor{client: razorpay.NewClient(keyID, keySecret)}
}

// Name returns the processor name.
func (r *RazorpayProcessor) Name() string { return "razorpay" }

// CreateIntent creates an order for the ride.
func (r *RazorpayProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	orderData := map[string]interface{}{
		"amount":   minorUnits(req.Amount),
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.RideID,
		"notes": map[string]interface{}{
			"ride_id":  req.RideID,
			"rider_id": req.RiderID,
		},
	}

	order, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.client.Order.Create(orderData, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return razorpayIntent(order), nil
}

// GetIntent fetches an order.
func (r *RazorpayProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	order, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.client.Order.Fetch(id, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if _, ok := order["id"]; !ok {
		return nil, ErrIntentNotFound
	}

	return razorpayIntent(order), nil
}

// CancelIntent is a no-op: unpaid Razorpay orders simply expire.
func (r *RazorpayProcessor) CancelIntent(ctx context.Context, id string) error {
	return nil
}

// callWithContext runs a blocking SDK call and gives up when ctx ends. The
// SDK has no context support, so the call itself keeps running.
func callWithContext(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}

	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.body, res.err
	}
}

func razorpayIntent(order map[string]interface{}) *Intent {
	id, _ := order["id"].(string)
	currency, _ := order["currency"].(string)
	state, _ := order["status"].(string)

	status := IntentStatusPending
	if state == "paid" {
		status = IntentStatusSucceeded
	}

	return &Intent{
		ID:           id,
		ClientSecret: id,
		Status:       status,
		Amount:       toInt64(order["amount"]) / 100,
		Currency:     currency,
	}
}

// toInt64 reads a JSON number that the SDK may decode as float64 or int.
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}
