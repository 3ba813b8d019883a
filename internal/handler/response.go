package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drivio/internal/domain"
	"drivio/internal/logger"
	"drivio/internal/middleware"
	"drivio/internal/repository"
	"drivio/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).WithError(err).Error("request failed")
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// badRequest sends a 400 with msg.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// identity returns the caller resolved by the auth middleware, or writes a
// 401 and returns false.
func identity(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
		return domain.Identity{}, false
	}
	return id, true
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidMultiplier),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDropoffLocation),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidRideClass),
		errors.Is(err, service.ErrInvalidCancelReason),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidPromoCode):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRiderHasActiveRide),
		errors.Is(err, service.ErrDriverHasActiveRide),
		errors.Is(err, service.ErrRideAlreadyTaken),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrSettlementInProgress),
		errors.Is(err, service.ErrDriverOffline),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentModification):
		return http.StatusConflict

	// Business rule errors surfaced verbatim
	case errors.Is(err, service.ErrInvalidPromo),
		errors.Is(err, service.ErrFareMismatch):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Upstream errors
	case errors.Is(err, service.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
