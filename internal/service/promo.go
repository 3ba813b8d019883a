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
	"drivio/internal/repository"
)

// PromoService validates promo codes and records redemptions.
type PromoService struct {
	promoRepo  repository.PromoRepository
	transactor repository.Transactor
	clock      func() time.Time
}

// NewPromoService creates a new PromoService.
func NewPromoService(promoRepo repository.PromoRepository, transactor repository.Transactor) *PromoService {
	return &PromoService{
		promoRepo:  promoRepo,
		transactor: transactor,
		clock:      time.Now,
	}
}

// ApplyPromo validates code for the rider and records a redemption. The
// returned discount is what the rider's next ride request with the same code
// is charged at.
func (s *PromoService) ApplyPromo(ctx context.Context, code, riderID string) (*domain.PromoRedemption, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	code = domain.NormalizePromoCode(code)
	if code == "" {
		return nil, ErrInvalidPromoCode
	}

	now := s.clock()
	var redemption *domain.PromoRedemption

	err := s.transactor.WithinTx(ctx, func(repos repository.Repositories) error {
		promo, err := repos.Promos.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: code %s does not exist", ErrInvalidPromo, code)
			}
			return err
		}

		if !promo.ActiveAt(now) {
			return fmt.Errorf("%w: code %s is not active", ErrInvalidPromo, code)
		}

		if promo.SingleUse {
			used, err := repos.Promos.HasRedemption(ctx, promo.ID, riderID)
			if err != nil {
				return err
			}
			if used {
				return fmt.Errorf("%w: code %s was already used", ErrInvalidPromo, code)
			}
		}

		ok, err := repos.Promos.IncrementUsage(ctx, promo.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: code %s reached its usage limit", ErrInvalidPromo, code)
		}

		r := &domain.PromoRedemption{
			ID:              uuid.New().String(),
			PromoID:         promo.ID,
			Code:            promo.Code,
			RiderID:         riderID,
			DiscountPercent: promo.DiscountPercent,
			SingleUse:       promo.SingleUse,
			CreatedAt:       now,
		}
		if err := repos.Promos.CreateRedemption(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicateRedemption) {
				return fmt.Errorf("%w: code %s was already used", ErrInvalidPromo, code)
			}
			return err
		}

		redemption = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"rider_id": riderID,
		"code":     redemption.Code,
		"discount": redemption.DiscountPercent,
	}).Info("promo applied")

	return redemption, nil
}

// LookupDiscount returns the discount of an active promo without redeeming
// it. Used for fare estimates.
func (s *PromoService) LookupDiscount(ctx context.Context, code string) (int, error) {
	code = domain.NormalizePromoCode(code)
	if code == "" {
		return 0, nil
	}

	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: code %s does not exist", ErrInvalidPromo, code)
		}
		return 0, err
	}
	if !promo.ActiveAt(s.clock()) || promo.Exhausted() {
		return 0, fmt.Errorf("%w: code %s is not active", ErrInvalidPromo, code)
	}
	return promo.DiscountPercent, nil
}
