package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// MessageLogRepository defines the interface for delivery log data access.
// Logs are append-only; there is no update or delete.
type MessageLogRepository interface {
	Create(ctx context.Context, log *models.MessageLog) error
	ListByCampaign(ctx context.Context, campaignID int64) ([]*models.MessageLog, error)
	CountByCampaign(ctx context.Context, campaignID int64) (int, error)
	CountByStatus(ctx context.Context, campaignID int64) (sent, failed int, err error)
}

// messageLogRepository implements MessageLogRepository using PostgreSQL
type messageLogRepository struct {
	db *sql.DB
}

// NewMessageLogRepository creates a new message log repository
func NewMessageLogRepository(db *sql.DB) MessageLogRepository {
	return &messageLogRepository{db: db}
}

// Create appends a delivery log row
func (r *messageLogRepository) Create(ctx context.Context, log *models.MessageLog) error {
	query := `
		INSERT INTO message_logs (campaign_id, customer_contact, customer_name, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRowContext(
		ctx,
		query,
		log.CampaignID,
		log.CustomerContact,
		log.CustomerName,
		log.Status,
		log.ErrorMessage,
		log.SentAt,
	).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to create message log: %w", err)
	}

	return nil
}

// ListByCampaign retrieves every log row of a campaign in insertion order
func (r *messageLogRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*models.MessageLog, error) {
	query := `
		SELECT id, campaign_id, customer_contact, customer_name, status, error_message, sent_at
		FROM message_logs
		WHERE campaign_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list message logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.MessageLog{}
	for rows.Next() {
		log := &models.MessageLog{}
		err := rows.Scan(
			&log.ID,
			&log.CampaignID,
			&log.CustomerContact,
			&log.CustomerName,
			&log.Status,
			&log.ErrorMessage,
			&log.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message log: %w", err)
		}
		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message logs: %w", err)
	}

	return logs, nil
}

// CountByCampaign returns the number of log rows of a campaign
func (r *messageLogRepository) CountByCampaign(ctx context.Context, campaignID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_logs WHERE campaign_id = $1`, campaignID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count message logs: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of sent and failed log rows of a campaign
func (r *messageLogRepository) CountByStatus(ctx context.Context, campaignID int64) (sent, failed int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM message_logs
		WHERE campaign_id = $1`

	if err := r.db.QueryRowContext(ctx, query, campaignID).Scan(&sent, &failed); err != nil {
		return 0, 0, fmt.Errorf("failed to count message logs by status: %w", err)
	}
	return sent, failed, nil
}
