package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Raymond9734/storefront-outreach/internal/models"
	"github.com/Raymond9734/storefront-outreach/internal/repository"
)

// AccessGate decides whether a tenant may use the messaging feature
type AccessGate interface {
	HasAccess(ctx context.Context, tenantID string) (bool, error)
}

// SubscriptionService owns the entitlement lifecycle of tenants
type SubscriptionService interface {
	AccessGate
	Get(ctx context.Context, tenantID string) (*models.SubscriptionView, error)
	StartTrial(ctx context.Context, tenantID, tier string) (*models.SubscriptionView, error)
	Activate(ctx context.Context, tenantID string) (*models.SubscriptionView, error)
	Cancel(ctx context.Context, tenantID string) (*models.SubscriptionView, error)
	Lock(ctx context.Context, tenantID, reason string) error
	Unlock(ctx context.Context, tenantID string) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

// SubscriptionConfig holds plan parameters
type SubscriptionConfig struct {
	Tier       string
	TrialDays  int
	PeriodDays int
}

type subscriptionService struct {
	subRepo repository.SubscriptionRepository
	cfg     SubscriptionConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	cfg SubscriptionConfig,
	logger *slog.Logger,
) SubscriptionService {
	return newSubscriptionService(subRepo, cfg, time.Now, logger)
}

func newSubscriptionService(
	subRepo repository.SubscriptionRepository,
	cfg SubscriptionConfig,
	now func() time.Time,
	logger *slog.Logger,
) *subscriptionService {
	return &subscriptionService{
		subRepo: subRepo,
		cfg:     cfg,
		now:     now,
		logger:  logger,
	}
}

// HasAccess computes the effective entitlement of a tenant at the current time.
// A tenant without a live subscription has no access.
func (s *subscriptionService) HasAccess(ctx context.Context, tenantID string) (bool, error) {
	sub, err := s.current(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return sub.GrantsAccess(s.now()), nil
}

// Get returns the tenant's live subscription with its computed state
func (s *subscriptionService) Get(ctx context.Context, tenantID string) (*models.SubscriptionView, error) {
	sub, err := s.subRepo.GetCurrent(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return models.NewSubscriptionView(sub, s.now()), nil
}

// StartTrial opens a trial for a tenant without a live subscription
func (s *subscriptionService) StartTrial(ctx context.Context, tenantID, tier string) (*models.SubscriptionView, error) {
	existing, err := s.current(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrInvalidStateWithMsg(
			fmt.Sprintf("tenant already has a %s subscription", existing.EffectiveStatus(s.now())),
		)
	}

	if tier == "" {
		tier = s.cfg.Tier
	}

	now := s.now()
	ends := now.AddDate(0, 0, s.cfg.TrialDays)
	sub := &models.Subscription{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Status:         models.SubscriptionStatusTrial,
		Tier:           tier,
		TrialStartedAt: &now,
		TrialEndsAt:    &ends,
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to start trial: %w", err)
	}

	s.logger.Info("trial started",
		slog.String("tenant_id", tenantID),
		slog.Time("trial_ends_at", ends),
	)

	return models.NewSubscriptionView(sub, now), nil
}

// Activate applies a successful payment: trial or expired becomes active for a
// new period, an active subscription is extended from the end of its period.
func (s *subscriptionService) Activate(ctx context.Context, tenantID string) (*models.SubscriptionView, error) {
	now := s.now()

	sub, err := s.current(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		end := now.AddDate(0, 0, s.cfg.PeriodDays)
		sub = &models.Subscription{
			ID:                 uuid.NewString(),
			TenantID:           tenantID,
			Status:             models.SubscriptionStatusActive,
			Tier:               s.cfg.Tier,
			CurrentPeriodStart: &now,
			CurrentPeriodEnd:   &end,
			AutoRenew:          true,
		}
		if err := s.subRepo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to activate subscription: %w", err)
		}

		s.logger.Info("subscription activated",
			slog.String("tenant_id", tenantID),
			slog.Time("current_period_end", end),
		)
		return models.NewSubscriptionView(sub, now), nil
	}

	from := sub.EffectiveStatus(now)
	if from == models.SubscriptionStatusActive {
		end := sub.CurrentPeriodEnd.AddDate(0, 0, s.cfg.PeriodDays)
		sub.CurrentPeriodEnd = &end
	} else {
		end := now.AddDate(0, 0, s.cfg.PeriodDays)
		sub.CurrentPeriodStart = &now
		sub.CurrentPeriodEnd = &end
	}
	sub.Status = models.SubscriptionStatusActive
	sub.AutoRenew = true

	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	s.logger.Info("subscription activated",
		slog.String("tenant_id", tenantID),
		slog.String("from", string(from)),
		slog.Time("current_period_end", *sub.CurrentPeriodEnd),
	)

	return models.NewSubscriptionView(sub, now), nil
}

// Cancel ends an active subscription. Cancelled subscriptions are never reactivated.
func (s *subscriptionService) Cancel(ctx context.Context, tenantID string) (*models.SubscriptionView, error) {
	now := s.now()

	sub, err := s.subRepo.GetCurrent(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if status := sub.EffectiveStatus(now); status != models.SubscriptionStatusActive {
		return nil, models.ErrInvalidStateWithMsg(
			fmt.Sprintf("subscription with status '%s' cannot be cancelled", status),
		)
	}

	sub.Status = models.SubscriptionStatusCancelled
	sub.AutoRenew = false

	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	s.logger.Info("subscription cancelled", slog.String("tenant_id", tenantID))

	return models.NewSubscriptionView(sub, now), nil
}

// Lock denies access regardless of the computed status until Unlock
func (s *subscriptionService) Lock(ctx context.Context, tenantID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.ErrInvalidInput("lock reason is required")
	}

	sub, err := s.subRepo.GetCurrent(ctx, tenantID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.subRepo.SetLock(ctx, sub.ID, &reason, &now); err != nil {
		return fmt.Errorf("failed to lock subscription: %w", err)
	}

	s.logger.Warn("subscription locked",
		slog.String("tenant_id", tenantID),
		slog.String("reason", reason),
	)

	return nil
}

// Unlock lifts an explicit lock
func (s *subscriptionService) Unlock(ctx context.Context, tenantID string) error {
	sub, err := s.subRepo.GetCurrent(ctx, tenantID)
	if err != nil {
		return err
	}
	if !sub.IsLocked() {
		return nil
	}

	if err := s.subRepo.SetLock(ctx, sub.ID, nil, nil); err != nil {
		return fmt.Errorf("failed to unlock subscription: %w", err)
	}

	s.logger.Info("subscription unlocked", slog.String("tenant_id", tenantID))

	return nil
}

// ExpireOverdue persists the expiration of every elapsed trial and period
func (s *subscriptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.subRepo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return n, nil
}

// current returns the live subscription of a tenant, or nil when there is none
func (s *subscriptionService) current(ctx context.Context, tenantID string) (*models.Subscription, error) {
	sub, err := s.subRepo.GetCurrent(ctx, tenantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}
