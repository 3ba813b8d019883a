package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"drivio/internal/domain"
	"drivio/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService    *service.RideService
	driverService  *service.DriverService
	receiptService *service.ReceiptService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(
	rideService *service.RideService,
	driverService *service.DriverService,
	receiptService *service.ReceiptService,
) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		driverService:  driverService,
		receiptService: receiptService,
	}
}

// CreateRideRequest is the HTTP request body for requesting a ride.
type CreateRideRequest struct {
	RiderID         string   `json:"rider_id,omitempty"` // optional; must match the token
	PickupLocation  string   `json:"pickup_location"`
	PickupLat       *float64 `json:"pickup_lat,omitempty"`
	PickupLng       *float64 `json:"pickup_lng,omitempty"`
	DropoffLocation string   `json:"dropoff_location"`
	DropoffLat      *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng      *float64 `json:"dropoff_lng,omitempty"`
	RideClass       string   `json:"ride_class"`
	RideType        string   `json:"ride_type,omitempty"` // older clients
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	PromoCode       string   `json:"promo_code,omitempty"`

	// Fare is accepted for compatibility with older clients and ignored;
	// the fare is always computed server-side.
	Fare *float64 `json:"fare,omitempty"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// LocationRequest is the HTTP request body for a driver position update.
type LocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// CreateRide handles POST /api/rides/request
func (h *RideHandler) CreateRide(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.RiderID != "" && req.RiderID != caller.ID {
		respondError(c, service.ErrForbidden)
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
	// A client quoting its own fare must say which class it priced.
	if class == "" && req.Fare != nil {
		respondError(c, service.ErrInvalidRideClass)
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		RiderID:    caller.ID,
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

	respondJSON(c, http.StatusCreated, newRideResponse(ride))
}

// GetRide handles GET /api/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// ListEvents handles GET /api/rides/:id/events
func (h *RideHandler) ListEvents(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	events, err := h.rideService.ListEvents(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideEventResponses(events))
}

// AcceptRide handles POST /api/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	ride, err := h.rideService.AcceptRide(c.Request.Context(), c.Param("id"), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// StartRide handles POST /api/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), c.Param("id"), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// CompleteRide handles POST /api/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	ride, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// CancelRide handles POST /api/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	// The body is optional before a driver is assigned.
	var req CancelRideRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), service.CancelRideRequest{
		RideID: c.Param("id"),
		Actor:  caller,
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// UpdateLocation handles POST /api/rides/:id/location
func (h *RideHandler) UpdateLocation(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil {
		badRequest(c, "lat and lng are required")
		return
	}

	err := h.rideService.UpdateDriverLocation(c.Request.Context(), service.LocationUpdateRequest{
		RideID:   c.Param("id"),
		DriverID: caller.ID,
		Lat:      *req.Lat,
		Lng:      *req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAvailable handles GET /api/rides/available
func (h *RideHandler) ListAvailable(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	items, err := h.driverService.ListAvailable(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newFeedResponses(items))
}

// History handles GET /api/rides/history?rider_id=|driver_id=
func (h *RideHandler) History(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	rides, err := h.rideService.History(c.Request.Context(), service.HistoryRequest{
		Actor:    caller,
		RiderID:  firstQuery(c, "rider_id", "riderId"),
		DriverID: firstQuery(c, "driver_id", "driverId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponses(rides))
}

// AwaitingPayment handles GET /api/rides/awaiting-payment
func (h *RideHandler) AwaitingPayment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	rides, err := h.rideService.AwaitingPayment(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponses(rides))
}

// ReceiptResponse is the JSON form of a ride receipt.
type ReceiptResponse struct {
	RideID          string  `json:"ride_id"`
	PickupLocation  string  `json:"pickup_location"`
	DropoffLocation string  `json:"dropoff_location"`
	RideClass       string  `json:"ride_class"`
	Multiplier      float64 `json:"multiplier"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	BaseFare        int64   `json:"base_fare"`
	PromoCode       string  `json:"promo_code,omitempty"`
	DiscountPercent int     `json:"discount_percent"`
	DiscountAmount  int64   `json:"discount_amount"`
	TotalFare       int64   `json:"total_fare"`
	Currency        string  `json:"currency"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	PaymentStatus   string  `json:"payment_status"`
}

// GetReceipt handles GET /api/rides/:id/receipt. ?format=text returns the
// printable form.
func (h *RideHandler) GetReceipt(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	receipt, err := h.receiptService.GenerateReceipt(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, h.receiptService.FormatReceipt(receipt))
		return
	}

	respondJSON(c, http.StatusOK, newReceiptResponse(receipt))
}

func newReceiptResponse(r *domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		RideID:          r.RideID,
		PickupLocation:  r.Pickup.Address,
		DropoffLocation: r.Dropoff.Address,
		RideClass:       string(r.Class),
		Multiplier:      r.Multiplier,
		DistanceKm:      r.DistanceKm,
		DurationMinutes: int(r.Duration.Minutes()),
		BaseFare:        r.BaseFare,
		PromoCode:       r.PromoCode,
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
		TotalFare:       r.TotalFare,
		Currency:        r.Currency,
		PaymentMethod:   string(r.PaymentMethod),
		PaymentStatus:   strings.ToLower(string(r.PaymentStatus)),
	}
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}
