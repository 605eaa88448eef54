package models

import "time"

// SubscriptionStatus is the stored entitlement state of a tenant
type SubscriptionStatus string

// Subscription status constants
const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription stores a tenant's entitlement. The stored Status is not
// advanced by time alone; use EffectiveStatus to read the current state.
type Subscription struct {
	ID                 string             `json:"id"`
	TenantID           string             `json:"tenant_id"`
	Status             SubscriptionStatus `json:"status"`
	Tier               string             `json:"tier"`
	TrialStartedAt     *time.Time         `json:"trial_started_at,omitempty"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	AutoRenew          bool               `json:"auto_renew"`
	// LockReason is set while an explicit lock (e.g. a payment dispute) is in force
	LockReason *string   `json:"lock_reason,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EffectiveStatus computes the entitlement state at now from the stored
// status and the trial / billing period windows.
func (s *Subscription) EffectiveStatus(now time.Time) SubscriptionStatus {
	switch s.Status {
	case SubscriptionStatusTrial:
		if s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt) {
			return SubscriptionStatusTrial
		}
		return SubscriptionStatusExpired
	case SubscriptionStatusActive:
		if s.CurrentPeriodEnd != nil && now.Before(*s.CurrentPeriodEnd) {
			return SubscriptionStatusActive
		}
		return SubscriptionStatusExpired
	default:
		return s.Status
	}
}

// IsLocked reports whether an explicit lock is in force
func (s *Subscription) IsLocked() bool {
	return s.LockReason != nil
}

// GrantsAccess reports whether the tenant may use the messaging feature at now.
// Locks always take precedence over the computed status.
func (s *Subscription) GrantsAccess(now time.Time) bool {
	if s == nil || s.IsLocked() {
		return false
	}
	switch s.EffectiveStatus(now) {
	case SubscriptionStatusTrial, SubscriptionStatusActive:
		return true
	default:
		return false
	}
}

// SubscriptionView is the API representation with computed fields
type SubscriptionView struct {
	Subscription
	EffectiveStatus SubscriptionStatus `json:"effective_status"`
	HasAccess       bool               `json:"has_access"`
}

// NewSubscriptionView builds the view of s evaluated at now
func NewSubscriptionView(s *Subscription, now time.Time) *SubscriptionView {
	return &SubscriptionView{
		Subscription:    *s,
		EffectiveStatus: s.EffectiveStatus(now),
		HasAccess:       s.GrantsAccess(now),
	}
}
