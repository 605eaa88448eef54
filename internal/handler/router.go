package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything the router serves
type Handlers struct {
	Campaigns *CampaignHandler
	Billing   *BillingHandler
	Health    *HealthHandler
	Admin     *AdminHandler
	// Metrics is mounted on /metrics when set
	Metrics http.Handler

	// CallbackSecret authenticates the payment provider on /billing/callback
	CallbackSecret string

	// AdminSecret authenticates operators on /admin
	AdminSecret string
}

// NewRouter builds the API routes
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware)

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// Called by the payment provider, not by a tenant session
	r.With(SharedSecretMiddleware(CallbackSecretHeader, h.CallbackSecret)).
		Post("/billing/callback", h.Billing.PaymentCallback)

	if h.Admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(SharedSecretMiddleware(AdminSecretHeader, h.AdminSecret))

			r.Post("/tenants/{tenantID}/lock", h.Admin.LockSubscription)
			r.Post("/tenants/{tenantID}/unlock", h.Admin.UnlockSubscription)
			r.Post("/tenants/{tenantID}/channels/reset", h.Admin.ResetChannels)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.Campaigns.ListCampaigns)
			r.Post("/", h.Campaigns.CreateCampaign)
			r.Get("/segments", h.Campaigns.SegmentCounts)
			r.Post("/preview", h.Campaigns.PreviewMessage)
			r.Get("/{id}", h.Campaigns.GetCampaign)
			r.Put("/{id}", h.Campaigns.UpdateCampaign)
			r.Delete("/{id}", h.Campaigns.DeleteCampaign)
			r.Post("/{id}/send", h.Campaigns.SendCampaign)
			r.Get("/{id}/logs", h.Campaigns.ListLogs)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/subscription", h.Billing.GetSubscription)
			r.Post("/subscription/cancel", h.Billing.CancelSubscription)
			r.Post("/trial", h.Billing.StartTrial)
			r.Get("/payments", h.Billing.ListPayments)
			r.Post("/checkout", h.Billing.Checkout)
		})

		r.Get("/vouchers/validate/{code}", h.Billing.ValidateVoucher)
	})

	return r
}
