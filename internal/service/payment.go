package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"drivio/internal/domain"
	"drivio/internal/logger"
	"drivio/internal/payment"
	"drivio/internal/redis"
	"drivio/internal/repository"
)

// PaymentConfig holds settlement settings.
type PaymentConfig struct {
	Currency        string
	LockTTL         time.Duration
	UpstreamTimeout time.Duration
	Clock           func() time.Time
}

// PaymentService settles the fares of completed rides.
type PaymentService struct {
	paymentRepo         repository.PaymentRepository
	rideRepo            repository.RideRepository
	lockStore           redis.LockStoreInterface
	processor           payment.Processor
	notificationService *NotificationService
	cfg                 PaymentConfig
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	rideRepo repository.RideRepository,
	lockStore redis.LockStoreInterface,
	processor payment.Processor,
	notificationService *NotificationService,
	cfg PaymentConfig,
) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Second
	}
	return &PaymentService{
		paymentRepo:         paymentRepo,
		rideRepo:            rideRepo,
		lockStore:           lockStore,
		processor:           processor,
		notificationService: notificationService,
		cfg:                 cfg,
	}
}

func (s *PaymentService) now() time.Time {
	if s.cfg.Clock != nil {
		return s.cfg.Clock()
	}
	return time.Now()
}

// SettleRequest contains the parameters for settling a ride.
type SettleRequest struct {
	RideID  string
	RiderID string
	Method  string
	Amount  int64
}

// SettlePayment settles a completed ride's fare. Cash and UPI succeed
// immediately. Card creates a processor intent and returns a pending payment
// carrying the client secret; ConfirmPayment resolves it later.
//
// A ride is paid at most once: concurrent attempts are serialized by a
// per-ride lock and the ride's single payment row.
func (s *PaymentService) SettlePayment(ctx context.Context, req SettleRequest) (*domain.Payment, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	method, ok := domain.ParsePaymentMethod(req.Method)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.Method)
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != req.RiderID {
		return nil, ErrForbidden
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, fmt.Errorf("%w: ride is %s", ErrInvalidTransition, ride.Status)
	}
	if req.Amount != ride.Fare {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrFareMismatch, ride.Fare, req.Amount)
	}

	token, acquired, err := s.lockStore.AcquireRideLock(ctx, ride.ID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSettlementInProgress
	}
	defer func() {
		if err := s.lockStore.ReleaseRideLock(context.WithoutCancel(ctx), ride.ID, token); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("ride_id", ride.ID).Warn("failed to release settlement lock")
		}
	}()

	existing, err := s.paymentRepo.GetByRideID(ctx, ride.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == domain.PaymentStatusSucceeded {
		return nil, ErrAlreadyPaid
	}

	var p *domain.Payment
	if method == domain.PaymentMethodCard {
		p, err = s.settleCard(ctx, ride, existing)
	} else {
		p, err = s.settleDirect(ctx, ride, existing, method)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"ride_id":    ride.ID,
		"payment_id": p.ID,
		"method":     p.Method,
		"status":     p.Status,
	}).Info("payment settled")

	if p.Status == domain.PaymentStatusSucceeded {
		s.notificationService.NotifyPaymentSucceeded(ctx, p, ride.DriverID)
	}
	return p, nil
}

// settleDirect records a cash or UPI payment as succeeded. A pending card
// intent from an earlier attempt must be resolved first: if the rider has
// already paid it the card row is recorded instead, otherwise the intent is
// cancelled before the row is rewritten.
func (s *PaymentService) settleDirect(ctx context.Context, ride *domain.Ride, existing *domain.Payment, method domain.PaymentMethod) (*domain.Payment, error) {
	if existing != nil && existing.Method == domain.PaymentMethodCard && existing.ExternalRef != "" {
		if err := s.releaseCardIntent(ctx, ride, existing); err != nil {
			return nil, err
		}
	}

	p := s.paymentFor(ride, existing, method)
	p.Status = domain.PaymentStatusSucceeded
	p.ExternalRef = ""

	if err := s.save(ctx, p, existing == nil); err != nil {
		return nil, err
	}
	return p, nil
}

// releaseCardIntent makes sure the card intent behind existing can no longer
// collect money. A succeeded intent is recorded on the card row and reported
// as ErrAlreadyPaid.
func (s *PaymentService) releaseCardIntent(ctx context.Context, ride *domain.Ride, existing *domain.Payment) error {
	intent, err := s.getIntent(ctx, existing.ExternalRef)
	if errors.Is(err, payment.ErrIntentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch intent.Status {
	case payment.IntentStatusSucceeded:
		existing.Status = domain.PaymentStatusSucceeded
		if err := s.save(ctx, existing, false); err != nil {
			return err
		}
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"ride_id":    ride.ID,
			"payment_id": existing.ID,
		}).Info("card intent already paid, keeping card payment")
		s.notificationService.NotifyPaymentSucceeded(ctx, existing, ride.DriverID)
		return ErrAlreadyPaid
	case payment.IntentStatusFailed, payment.IntentStatusCancelled:
		return nil
	}

	callCtx, cancel := withUpstreamTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()
	if err := s.processor.CancelIntent(callCtx, existing.ExternalRef); err != nil {
		return upstreamError(callCtx, err)
	}
	return nil
}

// settleCard reuses a still pending intent of an earlier card attempt, or
// creates a new one.
func (s *PaymentService) settleCard(ctx context.Context, ride *domain.Ride, existing *domain.Payment) (*domain.Payment, error) {
	if existing != nil && existing.Method == domain.PaymentMethodCard &&
		existing.Status == domain.PaymentStatusPending && existing.ExternalRef != "" {
		intent, err := s.getIntent(ctx, existing.ExternalRef)
		if err != nil && !errors.Is(err, payment.ErrIntentNotFound) {
			return nil, err
		}
		if err == nil {
			switch intent.Status {
			case payment.IntentStatusPending:
				existing.ClientSecret = intent.ClientSecret
				return existing, nil
			case payment.IntentStatusSucceeded:
				existing.Status = domain.PaymentStatusSucceeded
				if err := s.save(ctx, existing, false); err != nil {
					return nil, err
				}
				return existing, nil
			}
		}
	}

	p := s.paymentFor(ride, existing, domain.PaymentMethodCard)

	callCtx, cancel := withUpstreamTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()
	intent, err := s.processor.CreateIntent(callCtx, payment.IntentRequest{
		Amount:         p.Amount,
		Currency:       p.Currency,
		RideID:         ride.ID,
		RiderID:        ride.RiderID,
		IdempotencyKey: p.IdempotencyKey,
	})
	if err != nil {
		return nil, upstreamError(callCtx, err)
	}

	p.ExternalRef = intent.ID
	p.ClientSecret = intent.ClientSecret
	p.Status = domain.PaymentStatusPending
	if intent.Status == payment.IntentStatusSucceeded {
		p.Status = domain.PaymentStatusSucceeded
	}

	if err := s.save(ctx, p, existing == nil); err != nil {
		s.cancelIntent(ctx, intent.ID)
		return nil, err
	}
	return p, nil
}

// paymentFor prepares the ride's payment row for a new attempt.
func (s *PaymentService) paymentFor(ride *domain.Ride, existing *domain.Payment, method domain.PaymentMethod) *domain.Payment {
	now := s.now()
	p := existing
	if p == nil {
		p = &domain.Payment{
			ID:        uuid.New().String(),
			RideID:    ride.ID,
			RiderID:   ride.RiderID,
			CreatedAt: now,
		}
	}
	p.Amount = ride.Fare
	p.Currency = s.cfg.Currency
	p.Method = method
	p.IdempotencyKey = fmt.Sprintf("ride-%s-%s", ride.ID, uuid.New().String())
	p.UpdatedAt = now
	return p
}

func (s *PaymentService) save(ctx context.Context, p *domain.Payment, create bool) error {
	p.UpdatedAt = s.now()

	var err error
	if create {
		err = s.paymentRepo.Create(ctx, p)
	} else {
		err = s.paymentRepo.Update(ctx, p)
	}
	if errors.Is(err, repository.ErrPaymentExists) || errors.Is(err, repository.ErrPaymentAlreadySucceeded) {
		return ErrAlreadyPaid
	}
	return err
}

// ConfirmRequest identifies a pending card payment by payment ID or
// processor reference.
type ConfirmRequest struct {
	PaymentID string
	RiderID   string
}

// ConfirmPayment polls the processor for a pending card payment and records
// the outcome. Payments that are no longer pending are returned unchanged.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req ConfirmRequest) (*domain.Payment, error) {
	p, err := s.GetPayment(ctx, req.PaymentID, req.RiderID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentStatusPending || p.Method != domain.PaymentMethodCard || p.ExternalRef == "" {
		return p, nil
	}

	token, acquired, err := s.lockStore.AcquireRideLock(ctx, p.RideID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSettlementInProgress
	}
	defer func() {
		if err := s.lockStore.ReleaseRideLock(context.WithoutCancel(ctx), p.RideID, token); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("ride_id", p.RideID).Warn("failed to release settlement lock")
		}
	}()

	intent, err := s.getIntent(ctx, p.ExternalRef)
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case payment.IntentStatusSucceeded:
		p.Status = domain.PaymentStatusSucceeded
	case payment.IntentStatusFailed, payment.IntentStatusCancelled:
		p.Status = domain.PaymentStatusFailed
	default:
		p.ClientSecret = intent.ClientSecret
		return p, nil
	}

	if err := s.save(ctx, p, false); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"ride_id":    p.RideID,
		"payment_id": p.ID,
		"status":     p.Status,
	}).Info("card payment confirmed")

	if p.Status == domain.PaymentStatusSucceeded {
		driverID := ""
		if ride, err := s.rideRepo.GetByID(ctx, p.RideID); err == nil {
			driverID = ride.DriverID
		}
		s.notificationService.NotifyPaymentSucceeded(ctx, p, driverID)
	} else {
		s.notificationService.NotifyPaymentFailed(ctx, p)
	}
	return p, nil
}

// GetPayment returns one of the rider's payments by ID or processor reference.
func (s *PaymentService) GetPayment(ctx context.Context, id, riderID string) (*domain.Payment, error) {
	if id == "" {
		return nil, ErrInvalidPaymentID
	}
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	var p *domain.Payment
	var err error
	if _, parseErr := uuid.Parse(id); parseErr == nil {
		p, err = s.paymentRepo.GetByID(ctx, id)
	} else {
		p, err = s.paymentRepo.GetByExternalRef(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if p.RiderID != riderID {
		return nil, ErrForbidden
	}
	return p, nil
}

// ListPayments returns the rider's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, riderID string) ([]*domain.Payment, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.paymentRepo.ListByRider(ctx, riderID)
}

func (s *PaymentService) getIntent(ctx context.Context, id string) (*payment.Intent, error) {
	callCtx, cancel := withUpstreamTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	intent, err := s.processor.GetIntent(callCtx, id)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, err
		}
		return nil, upstreamError(callCtx, err)
	}
	return intent, nil
}

func (s *PaymentService) cancelIntent(ctx context.Context, id string) {
	callCtx, cancel := withUpstreamTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	if err := s.processor.CancelIntent(callCtx, id); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("intent_id", id).Warn("failed to cancel payment intent")
	}
}
