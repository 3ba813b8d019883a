package domain

import (
	"strings"
	"time"
)

// PromoCode is a server-held discount rule.
type PromoCode struct {
	ID              string
	Code            string
	DiscountPercent int
	ValidFrom       time.Time
	ValidUntil      time.Time // zero means open ended
	SingleUse       bool      // once per rider
	UsageLimit      int       // 0 means unlimited
	UsedCount       int
}

// NormalizePromoCode returns the canonical upper-case form of a code.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ActiveAt reports whether now lies within the validity window.
func (p *PromoCode) ActiveAt(now time.Time) bool {
	if !p.ValidFrom.IsZero() && now.Before(p.ValidFrom) {
		return false
	}
	if !p.ValidUntil.IsZero() && !now.Before(p.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the global usage cap has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit
}

// PromoRedemption records a rider applying a promo. RideID stays empty until
// a ride request consumes it.
type PromoRedemption struct {
	ID              string
	PromoID         string
	Code            string
	RiderID         string
	DiscountPercent int
	SingleUse       bool
	RideID          string
	CreatedAt       time.Time
}
