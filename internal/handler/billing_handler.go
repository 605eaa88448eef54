package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Raymond9734/storefront-outreach/internal/service"
)

// BillingHandler handles subscription, checkout and voucher HTTP requests
type BillingHandler struct {
	subscriptionService service.SubscriptionService
	checkoutService     service.CheckoutService
	logger              *slog.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(
	subscriptionService service.SubscriptionService,
	checkoutService service.CheckoutService,
	logger *slog.Logger,
) *BillingHandler {
	return &BillingHandler{
		subscriptionService: subscriptionService,
		checkoutService:     checkoutService,
		logger:              logger,
	}
}

// GetSubscription handles GET /billing/subscription
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subscriptionService.Get(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, sub)
}

// StartTrial handles POST /billing/trial
func (h *BillingHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	var req service.StartTrialRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.subscriptionService.StartTrial(r.Context(), TenantFromContext(r.Context()), req.Tier)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, sub)
}

// CancelSubscription handles POST /billing/subscription/cancel
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subscriptionService.Cancel(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, sub)
}

// ListPayments handles GET /billing/payments
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.checkoutService.ListPayments(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, map[string]any{"payments": payments})
}

// Checkout handles POST /billing/checkout
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.StartCheckoutRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkoutService.StartCheckout(r.Context(), TenantFromContext(r.Context()), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// PaymentCallback handles POST /billing/callback from the payment provider
func (h *BillingHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentCallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.checkoutService.HandleCallback(r.Context(), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, payment)
}

// ValidateVoucher handles GET /vouchers/validate/{code}
func (h *BillingHandler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.checkoutService.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, lookup)
}
