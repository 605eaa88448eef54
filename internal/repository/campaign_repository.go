package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// CampaignRepository defines the interface for campaign data access.
// Status changes are conditional updates so the draft -> sending -> sent
// order holds even under concurrent callers.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Campaign, error)
	UpdateDraft(ctx context.Context, campaign *models.Campaign) error
	MarkSending(ctx context.Context, id int64, recipientsCount int) error
	MarkSent(ctx context.Context, id int64, sentCount, failedCount int, sentAt time.Time) error
	// ListStaleSending returns campaigns that entered sending before the given time
	ListStaleSending(ctx context.Context, before time.Time) ([]*models.Campaign, error)
	Delete(ctx context.Context, id int64) error
}

// campaignRepository implements CampaignRepository using PostgreSQL
type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `id, tenant_id, name, message_template, target_segment, channel, variables,
	status, recipients_count, sent_count, failed_count, created_at, sending_started_at, sent_at`

// Create inserts a new campaign
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	variables, err := marshalVariables(campaign.Variables)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaigns (tenant_id, name, message_template, target_segment, channel, variables, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(
		ctx,
		query,
		campaign.TenantID,
		campaign.Name,
		campaign.MessageTemplate,
		campaign.TargetSegment,
		campaign.Channel,
		variables,
		campaign.Status,
	).Scan(&campaign.ID, &campaign.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// ListByTenant retrieves all campaigns of a tenant, newest first
func (r *campaignRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id = $1 ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// UpdateDraft overwrites the editable fields of a campaign still in draft
func (r *campaignRepository) UpdateDraft(ctx context.Context, campaign *models.Campaign) error {
	variables, err := marshalVariables(campaign.Variables)
	if err != nil {
		return err
	}

	query := `
		UPDATE campaigns
		SET name = $1, message_template = $2, target_segment = $3, channel = $4, variables = $5
		WHERE id = $6 AND status = 'draft'`

	result, err := r.db.ExecContext(
		ctx,
		query,
		campaign.Name,
		campaign.MessageTemplate,
		campaign.TargetSegment,
		campaign.Channel,
		variables,
		campaign.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	return r.checkTransition(ctx, result, campaign.ID, "edited")
}

// MarkSending moves a draft campaign to sending and records its recipient count
func (r *campaignRepository) MarkSending(ctx context.Context, id int64, recipientsCount int) error {
	query := `
		UPDATE campaigns
		SET status = 'sending', recipients_count = $1, sending_started_at = NOW()
		WHERE id = $2 AND status = 'draft'`

	result, err := r.db.ExecContext(ctx, query, recipientsCount, id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign sending: %w", err)
	}

	return r.checkTransition(ctx, result, id, "sent")
}

// MarkSent moves a sending campaign to sent with its final tally
func (r *campaignRepository) MarkSent(ctx context.Context, id int64, sentCount, failedCount int, sentAt time.Time) error {
	query := `
		UPDATE campaigns
		SET status = 'sent', sent_count = $1, failed_count = $2, sent_at = $3
		WHERE id = $4 AND status = 'sending'`

	result, err := r.db.ExecContext(ctx, query, sentCount, failedCount, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign sent: %w", err)
	}

	return r.checkTransition(ctx, result, id, "completed")
}

// ListStaleSending retrieves campaigns stuck in sending since before the given time, oldest first
func (r *campaignRepository) ListStaleSending(ctx context.Context, before time.Time) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE status = 'sending' AND (sending_started_at IS NULL OR sending_started_at < $1)
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// Delete removes a campaign that is not currently sending
func (r *campaignRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM campaigns WHERE id = $1 AND status <> 'sending'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	return r.checkTransition(ctx, result, id, "deleted")
}

// checkTransition turns a zero-row conditional write into NotFound or InvalidState
func (r *campaignRepository) checkTransition(ctx context.Context, result sql.Result, id int64, action string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM campaigns WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	if err != nil {
		return fmt.Errorf("failed to get campaign status: %w", err)
	}

	return models.ErrInvalidStateWithMsg(
		fmt.Sprintf("campaign with status '%s' cannot be %s", status, action),
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	var variables []byte

	err := row.Scan(
		&campaign.ID,
		&campaign.TenantID,
		&campaign.Name,
		&campaign.MessageTemplate,
		&campaign.TargetSegment,
		&campaign.Channel,
		&variables,
		&campaign.Status,
		&campaign.RecipientsCount,
		&campaign.SentCount,
		&campaign.FailedCount,
		&campaign.CreatedAt,
		&campaign.SendingStartedAt,
		&campaign.SentAt,
	)
	if err != nil {
		return nil, err
	}

	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &campaign.Variables); err != nil {
			return nil, fmt.Errorf("failed to decode campaign variables: %w", err)
		}
	}

	return campaign, nil
}

func marshalVariables(variables map[string]string) ([]byte, error) {
	if variables == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("failed to encode campaign variables: %w", err)
	}
	return data, nil
}
