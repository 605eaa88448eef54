package service

import (
	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// CreateCampaignRequest represents a request to create a draft campaign
type CreateCampaignRequest struct {
	Name           string            `json:"name"`
	Message        string            `json:"message"`
	TargetCategory models.Segment    `json:"target_category"`
	Channel        models.Channel    `json:"channel"`
	Variables      map[string]string `json:"variables,omitempty"`
}

// UpdateCampaignRequest overwrites the editable fields of a draft
type UpdateCampaignRequest = CreateCampaignRequest

// DispatchResult summarizes a completed dispatch
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// DispatchAccepted is returned when a dispatch continues in the background
type DispatchAccepted struct {
	CampaignID      int64                 `json:"campaign_id"`
	Status          models.CampaignStatus `json:"status"`
	RecipientsCount int                   `json:"recipients_count"`
}

// PreviewRequest represents a request to render a message for one sample recipient
type PreviewRequest struct {
	Message   string            `json:"message"`
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables,omitempty"`
}

// PreviewResult represents a rendered preview
type PreviewResult struct {
	RenderedMessage string   `json:"rendered_message"`
	Unresolved      []string `json:"unresolved"`
}

// VoucherLookup is the live validation result of a voucher code
type VoucherLookup struct {
	Valid           bool `json:"valid"`
	DiscountPercent int  `json:"discount_percent"`
}

// CheckoutQuote is the first-payment price computation
type CheckoutQuote struct {
	Amount          float64 `json:"amount"`
	OriginalAmount  float64 `json:"original_amount"`
	DiscountPercent int     `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	// VoucherCode is the normalized code when it was applied
	VoucherCode *string `json:"voucher_code"`
}

// StartCheckoutRequest represents a request to start a paid plan checkout
type StartCheckoutRequest struct {
	VoucherCode *string `json:"voucher_code,omitempty"`
}

// CheckoutResult is a started checkout: the quote plus where to pay it
type CheckoutResult struct {
	Amount          float64 `json:"amount"`
	OriginalAmount  float64 `json:"originalAmount"`
	DiscountPercent int     `json:"discountPercent"`
	DiscountAmount  float64 `json:"discountAmount"`
	VoucherCode     *string `json:"voucherCode"`
	CheckoutURL     string  `json:"checkoutUrl"`
	Currency        string  `json:"currency"`
}

// PaymentCallbackRequest is the payment provider's outcome for a transaction
type PaymentCallbackRequest struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	ErrorMessage  *string `json:"error_message,omitempty"`
}

// Validate performs validation on the callback request
func (r *PaymentCallbackRequest) Validate() error {
	if r.TransactionID == "" {
		return models.ErrInvalidInput("transaction_id is required")
	}
	if r.Status != models.PaymentStatusCompleted && r.Status != models.PaymentStatusFailed {
		return models.ErrInvalidInput("status must be 'completed' or 'failed'")
	}
	return nil
}

// StartTrialRequest represents a request to open a trial
type StartTrialRequest struct {
	Tier string `json:"tier,omitempty"`
}
