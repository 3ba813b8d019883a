package domain

import (
	"strings"
	"time"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentMethod represents how a ride is paid.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
)

// ParsePaymentMethod normalizes a client supplied method.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodCard:
		return m, true
	}
	return "", false
}

// Payment is the settlement record of a ride. A ride has at most one; a
// retry with another method rewrites it until it succeeds.
type Payment struct {
	ID             string
	RideID         string
	RiderID        string
	Amount         int64
	Currency       string
	Method         PaymentMethod
	Status         PaymentStatus
	ExternalRef    string // processor intent/order id for card payments
	ClientSecret   string // not persisted
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
