package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/models"
	"github.com/Raymond9734/storefront-outreach/internal/repository"
)

// CampaignService handles campaign definitions and their delivery logs
type CampaignService interface {
	Create(ctx context.Context, tenantID string, req *CreateCampaignRequest) (*models.Campaign, error)
	Get(ctx context.Context, tenantID string, id int64) (*models.Campaign, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Campaign, error)
	UpdateDraft(ctx context.Context, tenantID string, id int64, req *UpdateCampaignRequest) (*models.Campaign, error)
	Delete(ctx context.Context, tenantID string, id int64) error
	ListLogs(ctx context.Context, tenantID string, id int64) ([]*models.MessageLog, error)
	Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error)
	// RecoverStale closes campaigns left in sending for longer than olderThan
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type campaignService struct {
	campaignRepo repository.CampaignRepository
	logRepo      repository.MessageLogRepository
	templateSvc  TemplateService
	now          func() time.Time
	logger       *slog.Logger
}

// NewCampaignService creates a new campaign service
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	logRepo repository.MessageLogRepository,
	templateSvc TemplateService,
	logger *slog.Logger,
) CampaignService {
	return &campaignService{
		campaignRepo: campaignRepo,
		logRepo:      logRepo,
		templateSvc:  templateSvc,
		now:          time.Now,
		logger:       logger,
	}
}

// Create validates and persists a new draft campaign
func (s *campaignService) Create(ctx context.Context, tenantID string, req *CreateCampaignRequest) (*models.Campaign, error) {
	campaign := &models.Campaign{
		TenantID:        tenantID,
		Name:            req.Name,
		MessageTemplate: req.Message,
		TargetSegment:   req.TargetCategory,
		Channel:         req.Channel,
		Variables:       req.Variables,
		Status:          models.CampaignStatusDraft,
	}

	if err := campaign.Validate(); err != nil {
		return nil, err
	}
	if err := s.templateSvc.ValidateTemplate(campaign.MessageTemplate); err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		s.logger.Error("failed to create campaign",
			slog.String("error", err.Error()),
			slog.String("tenant_id", tenantID),
			slog.String("name", req.Name),
		)
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.Info("campaign created",
		slog.Int64("campaign_id", campaign.ID),
		slog.String("tenant_id", tenantID),
		slog.String("segment", string(campaign.TargetSegment)),
		slog.String("channel", string(campaign.Channel)),
	)

	return campaign, nil
}

// Get retrieves a campaign owned by tenantID
func (s *campaignService) Get(ctx context.Context, tenantID string, id int64) (*models.Campaign, error) {
	return loadOwnedCampaign(ctx, s.campaignRepo, tenantID, id)
}

// ListByTenant retrieves every campaign of a tenant, newest first
func (s *campaignService) ListByTenant(ctx context.Context, tenantID string) ([]*models.Campaign, error) {
	campaigns, err := s.campaignRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// UpdateDraft overwrites the editable fields of a campaign still in draft
func (s *campaignService) UpdateDraft(ctx context.Context, tenantID string, id int64, req *UpdateCampaignRequest) (*models.Campaign, error) {
	campaign, err := loadOwnedCampaign(ctx, s.campaignRepo, tenantID, id)
	if err != nil {
		return nil, err
	}

	if !campaign.CanBeEdited() {
		return nil, models.ErrInvalidStateWithMsg(
			fmt.Sprintf("campaign with status '%s' cannot be edited", campaign.Status),
		)
	}

	campaign.Name = req.Name
	campaign.MessageTemplate = req.Message
	campaign.TargetSegment = req.TargetCategory
	campaign.Channel = req.Channel
	campaign.Variables = req.Variables

	if err := campaign.Validate(); err != nil {
		return nil, err
	}

	// The write re-checks the draft status, a concurrent send wins
	if err := s.campaignRepo.UpdateDraft(ctx, campaign); err != nil {
		return nil, err
	}

	s.logger.Info("campaign updated", slog.Int64("campaign_id", id))

	return campaign, nil
}

// Delete removes a draft or sent campaign together with its logs
func (s *campaignService) Delete(ctx context.Context, tenantID string, id int64) error {
	campaign, err := loadOwnedCampaign(ctx, s.campaignRepo, tenantID, id)
	if err != nil {
		return err
	}

	if !campaign.CanBeDeleted() {
		return models.ErrInvalidStateWithMsg(
			fmt.Sprintf("campaign with status '%s' cannot be deleted", campaign.Status),
		)
	}

	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("campaign deleted",
		slog.Int64("campaign_id", id),
		slog.String("status", string(campaign.Status)),
	)

	return nil
}

// ListLogs returns the delivery log of a campaign
func (s *campaignService) ListLogs(ctx context.Context, tenantID string, id int64) ([]*models.MessageLog, error) {
	if _, err := loadOwnedCampaign(ctx, s.campaignRepo, tenantID, id); err != nil {
		return nil, err
	}

	logs, err := s.logRepo.ListByCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list message logs: %w", err)
	}
	return logs, nil
}

// Preview renders a message the way dispatch would for a recipient called req.Name
func (s *campaignService) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error) {
	if err := s.templateSvc.ValidateTemplate(req.Message); err != nil {
		return nil, err
	}

	vars := recipientVars(req.Variables, models.Recipient{Name: req.Name})

	return &PreviewResult{
		RenderedMessage: s.templateSvc.Render(req.Message, vars),
		Unresolved:      s.templateSvc.Unresolved(req.Message, vars),
	}, nil
}

// RecoverStale finishes campaigns whose dispatch died after leaving draft. The
// tally is rebuilt from the delivery log; recipients without a log row are
// counted as failed so recipients_count still equals sent + failed.
func (s *campaignService) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	stale, err := s.campaignRepo.ListStaleSending(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	var recovered int64
	for _, campaign := range stale {
		sent, failed, err := s.logRepo.CountByStatus(ctx, campaign.ID)
		if err != nil {
			return recovered, fmt.Errorf("failed to count message logs: %w", err)
		}

		if missing := campaign.RecipientsCount - sent - failed; missing > 0 {
			failed += missing
		}

		err = s.campaignRepo.MarkSent(ctx, campaign.ID, sent, failed, s.now())
		if errors.Is(err, models.ErrInvalidState) {
			// finished by its own dispatch meanwhile
			continue
		}
		if err != nil {
			return recovered, err
		}

		recovered++
		s.logger.Warn("stale campaign closed",
			slog.Int64("campaign_id", campaign.ID),
			slog.String("tenant_id", campaign.TenantID),
			slog.Int("recipients", campaign.RecipientsCount),
			slog.Int("sent", sent),
			slog.Int("failed", failed),
		)
	}

	return recovered, nil
}

// loadOwnedCampaign hides campaigns of other tenants behind NotFound
func loadOwnedCampaign(ctx context.Context, repo repository.CampaignRepository, tenantID string, id int64) (*models.Campaign, error) {
	campaign, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.TenantID != tenantID {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	return campaign, nil
}
