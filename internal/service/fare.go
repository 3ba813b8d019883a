package service

import (
	"fmt"
	"math"
)

const (
	// PerKmRate is the base charge per kilometre in whole rupees.
	PerKmRate = 15.0

	// MinimumFare is the floor applied after discounts.
	MinimumFare int64 = 50
)

// ComputeFare returns the fare for a trip:
//
//	max(MinimumFare, round(distanceKm * PerKmRate * multiplier * (1 - discount/100)))
//
// Rounding is half-up. The function is pure.
func ComputeFare(distanceKm, multiplier float64, discountPercent int) (int64, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDistance, distanceKm)
	}
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMultiplier, multiplier)
	}
	if discountPercent < 0 || discountPercent > 100 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDiscount, discountPercent)
	}

	raw := distanceKm * PerKmRate * multiplier * (1 - float64(discountPercent)/100)
	fare := int64(math.Floor(raw + 0.5))
	if fare < MinimumFare {
		return MinimumFare, nil
	}
	return fare, nil
}
