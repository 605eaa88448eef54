package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// SubscriptionRepository defines the interface for subscription data access
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	// GetCurrent returns the tenant's single non-cancelled subscription
	GetCurrent(ctx context.Context, tenantID string) (*models.Subscription, error)
	// Update writes the lifecycle fields. The lock columns are left untouched.
	Update(ctx context.Context, sub *models.Subscription) error
	// SetLock sets or clears (nil reason) the explicit lock of a subscription
	SetLock(ctx context.Context, id string, reason *string, lockedAt *time.Time) error
	// ExpireOverdue persists the expiration of every trial or active
	// subscription whose window has elapsed at now
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// subscriptionRepository implements SubscriptionRepository using PostgreSQL
type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create inserts a new subscription
func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, status, tier, trial_started_at, trial_ends_at,
			current_period_start, current_period_end, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		sub.ID,
		sub.TenantID,
		sub.Status,
		sub.Tier,
		sub.TrialStartedAt,
		sub.TrialEndsAt,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.AutoRenew,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetCurrent retrieves the tenant's non-cancelled subscription
func (r *subscriptionRepository) GetCurrent(ctx context.Context, tenantID string) (*models.Subscription, error) {
	query := `
		SELECT id, tenant_id, status, tier, trial_started_at, trial_ends_at,
			current_period_start, current_period_end, auto_renew, lock_reason, locked_at,
			created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = $1 AND status <> 'cancelled'
		ORDER BY created_at DESC
		LIMIT 1`

	sub := &models.Subscription{}
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&sub.ID,
		&sub.TenantID,
		&sub.Status,
		&sub.Tier,
		&sub.TrialStartedAt,
		&sub.TrialEndsAt,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.AutoRenew,
		&sub.LockReason,
		&sub.LockedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("no subscription for tenant %s", tenantID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// Update overwrites the lifecycle fields of a subscription
func (r *subscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $1, tier = $2, current_period_start = $3, current_period_end = $4,
			auto_renew = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING lock_reason, locked_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		sub.Status,
		sub.Tier,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.AutoRenew,
		sub.ID,
	).Scan(&sub.LockReason, &sub.LockedAt, &sub.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("subscription with ID %s not found", sub.ID))
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return nil
}

// SetLock updates only the lock columns so a concurrent lifecycle write cannot clear them
func (r *subscriptionRepository) SetLock(ctx context.Context, id string, reason *string, lockedAt *time.Time) error {
	query := `
		UPDATE subscriptions
		SET lock_reason = $1, locked_at = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, reason, lockedAt, id)
	if err != nil {
		return fmt.Errorf("failed to set subscription lock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("subscription with ID %s not found", id))
	}

	return nil
}

// ExpireOverdue marks elapsed trials and billing periods as expired
func (r *subscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE (status = 'trial' AND (trial_ends_at IS NULL OR trial_ends_at <= $1))
		   OR (status = 'active' AND (current_period_end IS NULL OR current_period_end <= $1))`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
