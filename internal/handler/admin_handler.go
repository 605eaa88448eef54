package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Raymond9734/storefront-outreach/internal/service"
)

// ProviderCache drops the cached channel providers of a tenant
type ProviderCache interface {
	Invalidate(tenantID string)
}

// AdminHandler handles operator requests: subscription locks and channel resets
type AdminHandler struct {
	subscriptionService service.SubscriptionService
	providers           ProviderCache
	logger              *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	subscriptionService service.SubscriptionService,
	providers ProviderCache,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		subscriptionService: subscriptionService,
		providers:           providers,
		logger:              logger,
	}
}

// LockRequest represents a request to lock a tenant's subscription
type LockRequest struct {
	Reason string `json:"reason"`
}

// LockSubscription handles POST /admin/tenants/{tenantID}/lock
func (h *AdminHandler) LockSubscription(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.subscriptionService.Lock(r.Context(), tenantID, req.Reason); err != nil {
		handleError(w, err, h.logger)
		return
	}

	h.respondSubscription(w, r, tenantID)
}

// UnlockSubscription handles POST /admin/tenants/{tenantID}/unlock
func (h *AdminHandler) UnlockSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if err := h.subscriptionService.Unlock(r.Context(), tenantID); err != nil {
		handleError(w, err, h.logger)
		return
	}

	h.respondSubscription(w, r, tenantID)
}

// ResetChannels handles POST /admin/tenants/{tenantID}/channels/reset.
// Called after a tenant's bot credentials change; the next send builds fresh
// providers with closed circuit breakers.
func (h *AdminHandler) ResetChannels(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	h.providers.Invalidate(tenantID)

	h.logger.Info("channel providers reset", slog.String("tenant_id", tenantID))

	respondSuccess(w, map[string]any{"reset": true, "tenant_id": tenantID})
}

func (h *AdminHandler) respondSubscription(w http.ResponseWriter, r *http.Request, tenantID string) {
	sub, err := h.subscriptionService.Get(r.Context(), tenantID)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	respondSuccess(w, sub)
}
