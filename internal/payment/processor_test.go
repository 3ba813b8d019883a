package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"

	"drivio/internal/config"
)

func TestMockProcessor_IntentLifecycle(t *testing.T) {
	p := NewMockProcessor()
	ctx := context.Background()

	intent, err := p.CreateIntent(ctx, IntentRequest{Amount: 338, Currency: "INR", RideID: "ride-1"})
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if intent.Status != IntentStatusPending || intent.ClientSecret == "" {
		t.Fatalf("unexpected intent %+v", intent)
	}

	polled, err := p.GetIntent(ctx, intent.ID)
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if polled.Status != IntentStatusSucceeded {
		t.Errorf("expected succeeded after first poll, got %s", polled.Status)
	}

	// Cancelling a settled intent leaves it settled.
	if err := p.CancelIntent(ctx, intent.ID); !errors.Is(err, ErrIntentNotCancellable) {
		t.Fatalf("expected ErrIntentNotCancellable, got %v", err)
	}
	polled, _ = p.GetIntent(ctx, intent.ID)
	if polled.Status != IntentStatusSucceeded {
		t.Errorf("expected succeeded, got %s", polled.Status)
	}

	if _, err := p.GetIntent(ctx, "pi_unknown"); !errors.Is(err, ErrIntentNotFound) {
		t.Errorf("expected ErrIntentNotFound, got %v", err)
	}
}

func TestManualMockProcessor_StaysPendingUntilConfirmed(t *testing.T) {
	p := NewManualMockProcessor()
	ctx := context.Background()

	paid, _ := p.CreateIntent(ctx, IntentRequest{Amount: 150, Currency: "INR"})
	open, _ := p.CreateIntent(ctx, IntentRequest{Amount: 150, Currency: "INR"})

	polled, err := p.GetIntent(ctx, paid.ID)
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if polled.Status != IntentStatusPending {
		t.Fatalf("expected pending before confirmation, got %s", polled.Status)
	}

	if err := p.Confirm(paid.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	polled, _ = p.GetIntent(ctx, paid.ID)
	if polled.Status != IntentStatusSucceeded {
		t.Errorf("expected succeeded after confirmation, got %s", polled.Status)
	}
	if err := p.CancelIntent(ctx, paid.ID); !errors.Is(err, ErrIntentNotCancellable) {
		t.Errorf("expected ErrIntentNotCancellable, got %v", err)
	}

	if err := p.CancelIntent(ctx, open.ID); err != nil {
		t.Fatalf("CancelIntent failed: %v", err)
	}
	if err := p.Confirm(open.ID); err == nil {
		t.Errorf("expected a cancelled intent to refuse confirmation")
	}
}

func TestMockProcessor_HonoursContext(t *testing.T) {
	p := NewMockProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.CreateIntent(ctx, IntentRequest{Amount: 50}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCallWithContext_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRazorpayIntent(t *testing.T) {
	intent := razorpayIntent(map[string]interface{}{
		"id":       "order_123",
		"currency": "INR",
		"status":   "paid",
		"amount":   float64(33800),
	})
	if intent.ID != "order_123" || intent.Status != IntentStatusSucceeded || intent.Amount != 338 {
		t.Errorf("unexpected intent %+v", intent)
	}

	created := razorpayIntent(map[string]interface{}{"id": "order_456", "status": "created", "amount": 5000})
	if created.Status != IntentStatusPending || created.Amount != 50 {
		t.Errorf("unexpected intent %+v", created)
	}
}

func TestStripeIntent(t *testing.T) {
	intent := stripeIntent(&stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret",
		Status:       stripe.PaymentIntentStatusCanceled,
		Amount:       15000,
		Currency:     stripe.Currency("inr"),
	})
	if intent.Status != IntentStatusCancelled || intent.Amount != 150 || intent.Currency != "INR" {
		t.Errorf("unexpected intent %+v", intent)
	}
}

func TestNewProcessor(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.PaymentsConfig
		wantName string
		wantErr  bool
	}{
		{"default is mock", config.PaymentsConfig{}, "mock", false},
		{"stripe", config.PaymentsConfig{Provider: "stripe", StripeSecretKey: "sk_test"}, "stripe", false},
		{"stripe without key", config.PaymentsConfig{Provider: "stripe"}, "", true},
		{"razorpay", config.PaymentsConfig{Provider: "razorpay", RazorpayKeyID: "id", RazorpayKeySecret: "secret"}, "razorpay", false},
		{"razorpay without secret", config.PaymentsConfig{Provider: "razorpay", RazorpayKeyID: "id"}, "", true},
		{"unknown", config.PaymentsConfig{Provider: "paypal"}, "", true},
	}

	for _, tt := range tests {
		p, err := NewProcessor(tt.cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected an error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if p.Name() != tt.wantName {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.wantName, p.Name())
		}
	}
}
