package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivio/internal/service"
)

// PromoHandler handles HTTP requests for promo codes.
type PromoHandler struct {
	promoService *service.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(promoService *service.PromoService) *PromoHandler {
	return &PromoHandler{promoService: promoService}
}

// ApplyPromoRequest is the HTTP request body for applying a promo code.
type ApplyPromoRequest struct {
	Code    string `json:"code"`
	RiderID string `json:"rider_id,omitempty"` // optional; must match the token
}

// ApplyPromoResponse carries the discount the next ride request with the
// same code is charged at.
type ApplyPromoResponse struct {
	Code            string `json:"code"`
	Discount        int    `json:"discount"`
	DiscountPercent int    `json:"discount_percent"`
}

// ApplyPromo handles POST /api/promos/apply
func (h *PromoHandler) ApplyPromo(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.RiderID != "" && req.RiderID != caller.ID {
		respondError(c, service.ErrForbidden)
		return
	}

	redemption, err := h.promoService.ApplyPromo(c.Request.Context(), req.Code, caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ApplyPromoResponse{
		Code:            redemption.Code,
		Discount:        redemption.DiscountPercent,
		DiscountPercent: redemption.DiscountPercent,
	})
}
