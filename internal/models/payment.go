package models

import (
	"strings"
	"time"
)

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is one paid-plan charge for a tenant
type Payment struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Amount          float64    `json:"amount"`
	OriginalAmount  float64    `json:"original_amount"`
	DiscountPercent int        `json:"discount_percent"`
	VoucherCode     *string    `json:"voucher_code,omitempty"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	TransactionID   string     `json:"transaction_id"`
	PaymentMethod   string     `json:"payment_method"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsFinal reports whether the payment can no longer change
func (p *Payment) IsFinal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed
}

// Voucher grants a percentage discount on a tenant's first payment
type Voucher struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	Valid           bool   `json:"valid"`
}

// NormalizeVoucherCode canonicalizes a user-typed voucher code
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ClampPercent bounds a discount percentage to [0, 100]
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
