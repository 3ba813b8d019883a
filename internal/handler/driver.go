package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"drivio/internal/domain"
	"drivio/internal/service"
)

// DriverHandler handles HTTP requests for driver presence.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// AvailabilityRequest is the HTTP request body for a driver heartbeat.
type AvailabilityRequest struct {
	Online *bool    `json:"online"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

// AvailabilityResponse is the JSON form of a driver's presence.
type AvailabilityResponse struct {
	DriverID      string     `json:"driver_id"`
	Online        bool       `json:"online"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// Heartbeat handles POST /api/drivers/availability. Online defaults to true.
func (h *DriverHandler) Heartbeat(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	online := true
	if req.Online != nil {
		online = *req.Online
	}

	availability, err := h.driverService.Heartbeat(c.Request.Context(), service.HeartbeatRequest{
		DriverID: caller.ID,
		Online:   online,
		Lat:      req.Lat,
		Lng:      req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newAvailabilityResponse(availability))
}

// GetAvailability handles GET /api/drivers/availability
func (h *DriverHandler) GetAvailability(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	availability, err := h.driverService.GetAvailability(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newAvailabilityResponse(availability))
}

func newAvailabilityResponse(a *domain.DriverAvailability) AvailabilityResponse {
	resp := AvailabilityResponse{
		DriverID:      a.DriverID,
		Online:        a.Online,
		LastHeartbeat: optionalTime(a.LastHeartbeat),
	}
	if a.HasPosition {
		resp.Lat, resp.Lng = &a.Lat, &a.Lng
	}
	return resp
}
