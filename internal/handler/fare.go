package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivio/internal/service"
)

// FareHandler serves fare quotes.
type FareHandler struct {
	rideService *service.RideService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(rideService *service.RideService) *FareHandler {
	return &FareHandler{rideService: rideService}
}

// EstimateRequest is the HTTP request body for a fare quote.
type EstimateRequest struct {
	PickupLocation  string   `json:"pickup_location,omitempty"`
	PickupLat       *float64 `json:"pickup_lat,omitempty"`
	PickupLng       *float64 `json:"pickup_lng,omitempty"`
	DropoffLocation string   `json:"dropoff_location,omitempty"`
	DropoffLat      *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng      *float64 `json:"dropoff_lng,omitempty"`
	RideClass       string   `json:"ride_class"`
	RideType        string   `json:"ride_type,omitempty"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	PromoCode       string   `json:"promo_code,omitempty"`
}

// EstimateResponse is a fare quote.
type EstimateResponse struct {
	DistanceKm      float64 `json:"distance_km"`
	RideClass       string  `json:"ride_class"`
	Multiplier      float64 `json:"multiplier"`
	DiscountPercent int     `json:"discount_percent"`
	BaseFare        int64   `json:"base_fare"`
	Fare            int64   `json:"fare"`
}

// Estimate handles POST /api/fares/estimate
func (h *FareHandler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	pickup, ok := location(req.PickupLocation, req.PickupLat, req.PickupLng)
	if !ok {
		respondError(c, service.ErrInvalidPickupLocation)
		return
	}
	dropoff, ok := location(req.DropoffLocation, req.DropoffLat, req.DropoffLng)
	if !ok {
		respondError(c, service.ErrInvalidDropoffLocation)
		return
	}

	class, ok := rideClass(req.RideClass, req.RideType)
	if !ok {
		respondError(c, service.ErrInvalidRideClass)
		return
	}

	estimate, err := h.rideService.EstimateFare(c.Request.Context(), service.EstimateRequest{
		Pickup:     pickup,
		Dropoff:    dropoff,
		Class:      class,
		DistanceKm: req.DistanceKm,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateResponse{
		DistanceKm:      estimate.DistanceKm,
		RideClass:       string(estimate.Class),
		Multiplier:      estimate.Multiplier,
		DiscountPercent: estimate.DiscountPercent,
		BaseFare:        estimate.BaseFare,
		Fare:            estimate.Fare,
	})
}
