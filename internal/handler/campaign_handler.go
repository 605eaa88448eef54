package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Raymond9734/storefront-outreach/internal/service"
)

// CampaignHandler handles campaign HTTP requests
type CampaignHandler struct {
	campaignService service.CampaignService
	dispatchService service.DispatchService
	segmentService  service.SegmentService
	logger          *slog.Logger
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(
	campaignService service.CampaignService,
	dispatchService service.DispatchService,
	segmentService service.SegmentService,
	logger *slog.Logger,
) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		dispatchService: dispatchService,
		segmentService:  segmentService,
		logger:          logger,
	}
}

// SegmentCounts handles GET /campaigns/segments
func (h *CampaignHandler) SegmentCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.segmentService.CountBySegment(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, counts)
}

// CreateCampaign handles POST /campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	campaign, err := h.campaignService.Create(r.Context(), TenantFromContext(r.Context()), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, campaign)
}

// ListCampaigns handles GET /campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaignService.ListByTenant(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, campaigns)
}

// GetCampaign handles GET /campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	campaign, err := h.campaignService.Get(r.Context(), TenantFromContext(r.Context()), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, campaign)
}

// UpdateCampaign handles PUT /campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	var req service.UpdateCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	campaign, err := h.campaignService.UpdateDraft(r.Context(), TenantFromContext(r.Context()), id, &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, campaign)
}

// DeleteCampaign handles DELETE /campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	if err := h.campaignService.Delete(r.Context(), TenantFromContext(r.Context()), id); err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, map[string]any{"deleted": true, "id": id})
}

// SendCampaign handles POST /campaigns/{id}/send.
// With ?async=true the response is 202 once the campaign is sending.
func (h *CampaignHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	tenantID := TenantFromContext(r.Context())

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		accepted, err := h.dispatchService.DispatchAsync(r.Context(), tenantID, id)
		if err != nil {
			handleError(w, err, h.logger)
			return
		}
		respondAccepted(w, accepted)
		return
	}

	result, err := h.dispatchService.Dispatch(r.Context(), tenantID, id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// ListLogs handles GET /campaigns/{id}/logs
func (h *CampaignHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	logs, err := h.campaignService.ListLogs(r.Context(), TenantFromContext(r.Context()), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, logs)
}

// PreviewMessage handles POST /campaigns/preview
func (h *CampaignHandler) PreviewMessage(w http.ResponseWriter, r *http.Request) {
	var req service.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.campaignService.Preview(r.Context(), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}
