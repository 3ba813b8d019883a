package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"drivio/internal/domain"
	"drivio/internal/payment"
	"drivio/internal/service"
)

func TestSettlePayment_Cash(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	p, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID:  ride.ID,
		RiderID: rider.ID,
		Method:  "Cash",
		Amount:  150,
	})
	if err != nil {
		t.Fatalf("SettlePayment failed: %v", err)
	}
	if p.Status != domain.PaymentStatusSucceeded || p.Method != domain.PaymentMethodCash {
		t.Errorf("expected succeeded cash payment, got %s %s", p.Status, p.Method)
	}
	if p.Amount != 150 || p.Currency != "INR" {
		t.Errorf("unexpected amount %d %s", p.Amount, p.Currency)
	}
	if !f.publisher.Received(driver.ID, string(service.NotificationPaymentSucceeded)) {
		t.Error("expected the driver to be notified")
	}
	if f.locks.AcquireCallCount != 1 || f.locks.ReleaseCallCount != 1 {
		t.Errorf("expected one lock round trip, got %d/%d", f.locks.AcquireCallCount, f.locks.ReleaseCallCount)
	}

	_, err = f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID:  ride.ID,
		RiderID: rider.ID,
		Method:  "upi",
		Amount:  150,
	})
	if !errors.Is(err, service.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
	if n := f.store.PaymentCount(); n != 1 {
		t.Errorf("expected one payment, got %d", n)
	}
}

func TestSettlePayment_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(req *service.SettleRequest)
		wantErr error
	}{
		{"fare mismatch", func(r *service.SettleRequest) { r.Amount = 149 }, service.ErrFareMismatch},
		{"zero amount", func(r *service.SettleRequest) { r.Amount = 0 }, service.ErrInvalidPaymentAmount},
		{"unknown method", func(r *service.SettleRequest) { r.Method = "cheque" }, service.ErrInvalidPaymentMethod},
		{"other rider", func(r *service.SettleRequest) { r.RiderID = otherRider.ID }, service.ErrForbidden},
		{"missing ride", func(r *service.SettleRequest) { r.RideID = "" }, service.ErrInvalidRideID},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			ride := f.completedRide(t, rider.ID, driver.ID, 10)
			req := service.SettleRequest{RideID: ride.ID, RiderID: rider.ID, Method: "cash", Amount: ride.Fare}
			tt.mutate(&req)

			_, err := f.payments.SettlePayment(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if n := f.store.PaymentCount(); n != 0 {
				t.Errorf("expected no payment row, got %d", n)
			}
		})
	}
}

func TestSettlePayment_RideNotCompleted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ride := f.requestRide(t, rider.ID, 10)

	_, err := f.payments.SettlePayment(context.Background(), service.SettleRequest{
		RideID:  ride.ID,
		RiderID: rider.ID,
		Method:  "cash",
		Amount:  ride.Fare,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSettlePayment_LockHeld(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ride := f.completedRide(t, rider.ID, driver.ID, 10)
	f.locks.Hold(ride.ID)

	_, err := f.payments.SettlePayment(context.Background(), service.SettleRequest{
		RideID:  ride.ID,
		RiderID: rider.ID,
		Method:  "cash",
		Amount:  ride.Fare,
	})
	if !errors.Is(err, service.ErrSettlementInProgress) {
		t.Fatalf("expected ErrSettlementInProgress, got %v", err)
	}
}

func TestSettlePayment_ConcurrentAttempts_PaidOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.payments.SettlePayment(context.Background(), service.SettleRequest{
				RideID:  ride.ID,
				RiderID: rider.ID,
				Method:  "upi",
				Amount:  ride.Fare,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, service.ErrAlreadyPaid), errors.Is(err, service.ErrSettlementInProgress):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one settlement, got %d", succeeded)
	}
	if n := f.store.PaymentCount(); n != 1 {
		t.Errorf("expected one payment row, got %d", n)
	}
}

func TestSettlePayment_CardFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	pending, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID:  ride.ID,
		RiderID: rider.ID,
		Method:  "card",
		Amount:  ride.Fare,
	})
	if err != nil {
		t.Fatalf("SettlePayment failed: %v", err)
	}
	if pending.Status != domain.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", pending.Status)
	}
	if pending.ExternalRef == "" || pending.ClientSecret == "" {
		t.Fatalf("expected intent reference and client secret, got %+v", pending)
	}

	// Still awaiting payment while the intent is pending.
	awaiting, err := f.rides.AwaitingPayment(ctx, rider.ID)
	if err != nil {
		t.Fatalf("AwaitingPayment failed: %v", err)
	}
	if len(awaiting) != 1 {
		t.Errorf("expected the ride to await payment, got %d", len(awaiting))
	}

	// The rider can confirm by processor reference.
	confirmed, err := f.payments.ConfirmPayment(ctx, service.ConfirmRequest{
		PaymentID: pending.ExternalRef,
		RiderID:   rider.ID,
	})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if confirmed.Status != domain.PaymentStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", confirmed.Status)
	}
	if confirmed.ID != pending.ID {
		t.Errorf("confirm should update the same payment")
	}

	again, err := f.payments.ConfirmPayment(ctx, service.ConfirmRequest{PaymentID: pending.ID, RiderID: rider.ID})
	if err != nil {
		t.Fatalf("second ConfirmPayment failed: %v", err)
	}
	if again.Status != domain.PaymentStatusSucceeded {
		t.Errorf("expected confirmed payment unchanged, got %s", again.Status)
	}

	_, err = f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID:  ride.ID,
		RiderID: rider.ID,
		Method:  "cash",
		Amount:  ride.Fare,
	})
	if !errors.Is(err, service.ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid after card success, got %v", err)
	}
}

func TestSettlePayment_SwitchFromCardToCash(t *testing.T) {
	t.Parallel()
	f := newFixture(t, withProcessor(payment.NewManualMockProcessor()))
	ctx := context.Background()

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	pending, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "card", Amount: ride.Fare,
	})
	if err != nil {
		t.Fatalf("card SettlePayment failed: %v", err)
	}

	paid, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "cash", Amount: ride.Fare,
	})
	if err != nil {
		t.Fatalf("cash SettlePayment failed: %v", err)
	}
	if paid.ID != pending.ID {
		t.Errorf("expected the ride's payment row to be rewritten")
	}
	if paid.Status != domain.PaymentStatusSucceeded || paid.Method != domain.PaymentMethodCash || paid.ExternalRef != "" {
		t.Errorf("unexpected payment %+v", paid)
	}
	if paid.IdempotencyKey == pending.IdempotencyKey {
		t.Error("each attempt should carry a fresh idempotency key")
	}

	intent, err := f.processor.GetIntent(ctx, pending.ExternalRef)
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if intent.Status != payment.IntentStatusCancelled {
		t.Errorf("expected the card intent to be cancelled, got %s", intent.Status)
	}
	if n := f.store.PaymentCount(); n != 1 {
		t.Errorf("expected one payment row, got %d", n)
	}
}

func TestSettlePayment_CashAfterCardPaidOnClient(t *testing.T) {
	t.Parallel()
	processor := payment.NewManualMockProcessor()
	f := newFixture(t, withProcessor(processor))
	ctx := context.Background()

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	pending, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "card", Amount: ride.Fare,
	})
	if err != nil {
		t.Fatalf("card SettlePayment failed: %v", err)
	}

	// The rider completes the card payment before the server hears about it.
	if err := processor.Confirm(pending.ExternalRef); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	_, err = f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "cash", Amount: ride.Fare,
	})
	if !errors.Is(err, service.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	stored, err := f.repos.Payments.GetByRideID(ctx, ride.ID)
	if err != nil {
		t.Fatalf("GetByRideID failed: %v", err)
	}
	if stored.Method != domain.PaymentMethodCard || stored.Status != domain.PaymentStatusSucceeded {
		t.Errorf("expected the card payment to be recorded, got method=%s status=%s", stored.Method, stored.Status)
	}
	if stored.ExternalRef != pending.ExternalRef {
		t.Errorf("expected the card reference to be kept, got %q", stored.ExternalRef)
	}
	if n := f.store.PaymentCount(); n != 1 {
		t.Errorf("expected one payment row, got %d", n)
	}
	if !f.publisher.Received(rider.ID, "PAYMENT_SUCCEEDED") {
		t.Error("expected the rider to be told the card payment succeeded")
	}

	awaiting, err := f.rides.AwaitingPayment(ctx, rider.ID)
	if err != nil {
		t.Fatalf("AwaitingPayment failed: %v", err)
	}
	if len(awaiting) != 0 {
		t.Errorf("expected no rides awaiting payment, got %d", len(awaiting))
	}
}

func TestSettlePayment_SwitchFailsWhenIntentCannotBeCancelled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, withProcessor(&stuckCancelProcessor{MockProcessor: payment.NewManualMockProcessor()}))
	ctx := context.Background()

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	pending, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "card", Amount: ride.Fare,
	})
	if err != nil {
		t.Fatalf("card SettlePayment failed: %v", err)
	}

	_, err = f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "upi", Amount: ride.Fare,
	})
	if !errors.Is(err, service.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	stored, err := f.repos.Payments.GetByRideID(ctx, ride.ID)
	if err != nil {
		t.Fatalf("GetByRideID failed: %v", err)
	}
	if stored.Method != domain.PaymentMethodCard || stored.Status != domain.PaymentStatusPending || stored.ExternalRef != pending.ExternalRef {
		t.Errorf("expected the pending card payment to be untouched, got %+v", stored)
	}
	if f.locks.ReleaseCallCount != f.locks.AcquireCallCount {
		t.Errorf("expected every lock to be released, got %d/%d", f.locks.AcquireCallCount, f.locks.ReleaseCallCount)
	}
}

func TestSettlePayment_ProcessorTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, withProcessor(&slowProcessor{MockProcessor: payment.NewMockProcessor()}))

	ride := f.completedRide(t, rider.ID, driver.ID, 10)

	_, err := f.payments.SettlePayment(context.Background(), service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "card", Amount: ride.Fare,
	})
	if !errors.Is(err, service.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
	if n := f.store.PaymentCount(); n != 0 {
		t.Errorf("expected no payment row, got %d", n)
	}
	if stored := f.store.Ride(ride.ID); stored.Status != domain.RideStatusCompleted {
		t.Errorf("ride should stay completed, got %s", stored.Status)
	}
	if f.locks.ReleaseCallCount != 1 {
		t.Errorf("expected the lock to be released, got %d releases", f.locks.ReleaseCallCount)
	}
}

func TestGetPayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	ride := f.completedRide(t, rider.ID, driver.ID, 10)
	p, err := f.payments.SettlePayment(ctx, service.SettleRequest{
		RideID: ride.ID, RiderID: rider.ID, Method: "card", Amount: ride.Fare,
	})
	if err != nil {
		t.Fatalf("SettlePayment failed: %v", err)
	}

	byID, err := f.payments.GetPayment(ctx, p.ID, rider.ID)
	if err != nil || byID.ID != p.ID {
		t.Errorf("lookup by id: got %v, %v", byID, err)
	}
	byRef, err := f.payments.GetPayment(ctx, p.ExternalRef, rider.ID)
	if err != nil || byRef.ID != p.ID {
		t.Errorf("lookup by reference: got %v, %v", byRef, err)
	}
	if _, err := f.payments.GetPayment(ctx, p.ID, otherRider.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	list, err := f.payments.ListPayments(ctx, rider.ID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Errorf("expected the rider's payment, got %+v", list)
	}
}
