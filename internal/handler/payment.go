package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivio/internal/domain"
	"drivio/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// SettlePaymentRequest is the HTTP request body for settling a ride.
type SettlePaymentRequest struct {
	RideID string `json:"ride_id"`
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

// SettlePayment handles POST /api/payments/settle. Cash and UPI answer 201
// with a succeeded payment; card answers 202 with a pending payment and the
// client secret to confirm it with.
func (h *PaymentHandler) SettlePayment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req SettlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.SettlePayment(c.Request.Context(), service.SettleRequest{
		RideID:  req.RideID,
		RiderID: caller.ID,
		Method:  req.Method,
		Amount:  req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusCreated
	if payment.Status != domain.PaymentStatusSucceeded {
		code = http.StatusAccepted
	}
	respondJSON(c, code, newPaymentResponse(payment))
}

// ConfirmPayment handles POST /api/payments/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.ConfirmPayment(c.Request.Context(), service.ConfirmRequest{
		PaymentID: c.Param("id"),
		RiderID:   caller.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newPaymentResponse(payment))
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newPaymentResponse(payment))
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, newPaymentResponse(p))
	}
	respondJSON(c, http.StatusOK, resp)
}
