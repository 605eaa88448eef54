package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/channel"
	"github.com/Raymond9734/storefront-outreach/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCampaignRepository keeps campaigns in memory and mirrors the conditional writes of Postgres
type mockCampaignRepository struct {
	mu          sync.Mutex
	campaigns   map[int64]*models.Campaign
	nextID      int64
	markSentErr error
}

func newMockCampaignRepository() *mockCampaignRepository {
	return &mockCampaignRepository{campaigns: make(map[int64]*models.Campaign)}
}

func (m *mockCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	campaign.ID = m.nextID
	campaign.CreatedAt = time.Now()
	c := *campaign
	m.campaigns[c.ID] = &c
	return nil
}

func (m *mockCampaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	copied := *c
	return &copied, nil
}

func (m *mockCampaignRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Campaign{}
	for _, c := range m.campaigns {
		if c.TenantID == tenantID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockCampaignRepository) transition(id int64, from models.CampaignStatus, action string, apply func(c *models.Campaign)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	if c.Status != from {
		return models.ErrInvalidStateWithMsg(fmt.Sprintf("campaign with status '%s' cannot be %s", c.Status, action))
	}
	apply(c)
	return nil
}

func (m *mockCampaignRepository) UpdateDraft(ctx context.Context, campaign *models.Campaign) error {
	return m.transition(campaign.ID, models.CampaignStatusDraft, "edited", func(c *models.Campaign) {
		c.Name = campaign.Name
		c.MessageTemplate = campaign.MessageTemplate
		c.TargetSegment = campaign.TargetSegment
		c.Channel = campaign.Channel
		c.Variables = campaign.Variables
	})
}

func (m *mockCampaignRepository) MarkSending(ctx context.Context, id int64, recipientsCount int) error {
	return m.transition(id, models.CampaignStatusDraft, "sent", func(c *models.Campaign) {
		now := time.Now()
		c.Status = models.CampaignStatusSending
		c.RecipientsCount = recipientsCount
		c.SendingStartedAt = &now
	})
}

func (m *mockCampaignRepository) ListStaleSending(ctx context.Context, before time.Time) ([]*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == models.CampaignStatusSending && (c.SendingStartedAt == nil || c.SendingStartedAt.Before(before)) {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCampaignRepository) MarkSent(ctx context.Context, id int64, sentCount, failedCount int, sentAt time.Time) error {
	if m.markSentErr != nil {
		return m.markSentErr
	}
	return m.transition(id, models.CampaignStatusSending, "completed", func(c *models.Campaign) {
		c.Status = models.CampaignStatusSent
		c.SentCount = sentCount
		c.FailedCount = failedCount
		c.SentAt = &sentAt
	})
}

func (m *mockCampaignRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	if c.Status == models.CampaignStatusSending {
		return models.ErrInvalidStateWithMsg("campaign with status 'sending' cannot be deleted")
	}
	delete(m.campaigns, id)
	return nil
}

// set overwrites a stored campaign, for arranging test state
func (m *mockCampaignRepository) set(c *models.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.campaigns[c.ID] = &copied
	if c.ID > m.nextID {
		m.nextID = c.ID
	}
}

type mockMessageLogRepository struct {
	mu     sync.Mutex
	logs   []*models.MessageLog
	nextID int64
}

func (m *mockMessageLogRepository) Create(ctx context.Context, log *models.MessageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	log.ID = m.nextID
	copied := *log
	m.logs = append(m.logs, &copied)
	return nil
}

func (m *mockMessageLogRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*models.MessageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.MessageLog{}
	for _, l := range m.logs {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockMessageLogRepository) CountByCampaign(ctx context.Context, campaignID int64) (int, error) {
	logs, _ := m.ListByCampaign(ctx, campaignID)
	return len(logs), nil
}

func (m *mockMessageLogRepository) CountByStatus(ctx context.Context, campaignID int64) (sent, failed int, err error) {
	logs, _ := m.ListByCampaign(ctx, campaignID)
	for _, l := range logs {
		if l.Status == models.MessageStatusSent {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed, nil
}

type mockCustomerRepository struct {
	histories []*models.CustomerHistory
	err       error
}

func (m *mockCustomerRepository) ListHistories(ctx context.Context, tenantID string) ([]*models.CustomerHistory, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.histories, nil
}

type mockSubscriptionRepository struct {
	mu   sync.Mutex
	subs map[string]*models.Subscription
	// afterGet runs once, after the next GetCurrent has read its row
	afterGet func()
}

func newMockSubscriptionRepository() *mockSubscriptionRepository {
	return &mockSubscriptionRepository{subs: make(map[string]*models.Subscription)}
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.subs[sub.TenantID]; ok && existing.Status != models.SubscriptionStatusCancelled {
		return errors.New("duplicate key value violates unique constraint")
	}
	copied := *sub
	m.subs[sub.TenantID] = &copied
	return nil
}

func (m *mockSubscriptionRepository) GetCurrent(ctx context.Context, tenantID string) (*models.Subscription, error) {
	m.mu.Lock()
	sub, ok := m.subs[tenantID]
	if !ok || sub.Status == models.SubscriptionStatusCancelled {
		m.mu.Unlock()
		return nil, models.ErrNotFoundWithMsg("subscription not found")
	}
	copied := *sub
	hook := m.afterGet
	m.afterGet = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &copied, nil
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *sub
	if existing, ok := m.subs[sub.TenantID]; ok && existing.ID == sub.ID {
		copied.LockReason = existing.LockReason
		copied.LockedAt = existing.LockedAt
	}
	sub.LockReason = copied.LockReason
	sub.LockedAt = copied.LockedAt
	m.subs[sub.TenantID] = &copied
	return nil
}

func (m *mockSubscriptionRepository) SetLock(ctx context.Context, id string, reason *string, lockedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.ID == id {
			sub.LockReason = reason
			sub.LockedAt = lockedAt
			return nil
		}
	}
	return models.ErrNotFoundWithMsg("subscription not found")
}

func (m *mockSubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, sub := range m.subs {
		if (sub.Status == models.SubscriptionStatusTrial || sub.Status == models.SubscriptionStatusActive) &&
			sub.EffectiveStatus(now) == models.SubscriptionStatusExpired {
			sub.Status = models.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockSubscriptionRepository) stored(tenantID string) *models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[tenantID]
}

type mockPaymentRepository struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment.CreatedAt = time.Now()
	copied := *payment
	m.payments = append(m.payments, &copied)
	return nil
}

func (m *mockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("payment not found")
}

// last returns the most recently created payment
func (m *mockPaymentRepository) last() *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payments) == 0 {
		return nil
	}
	copied := *m.payments[len(m.payments)-1]
	return &copied
}

func (m *mockPaymentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Payment{}
	for _, p := range m.payments {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) CountCompleted(ctx context.Context, tenantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.payments {
		if p.TenantID == tenantID && p.Status == models.PaymentStatusCompleted {
			n++
		}
	}
	return n, nil
}

func (m *mockPaymentRepository) Finalize(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.payments {
		if p.TransactionID == payment.TransactionID {
			if p.Status != models.PaymentStatusPending {
				return models.ErrInvalidStateWithMsg("payment is not pending")
			}
			copied := *payment
			m.payments[i] = &copied
			return nil
		}
	}
	return models.ErrNotFoundWithMsg("payment not found")
}

type mockVoucherRepository struct {
	mu       sync.Mutex
	vouchers map[string]*models.Voucher
	calls    int
}

func (m *mockVoucherRepository) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	v, ok := m.vouchers[code]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("voucher not found")
	}
	copied := *v
	return &copied, nil
}

type mockCache struct {
	mu       sync.Mutex
	vouchers map[string]*models.Voucher
	getErr   error
}

func newMockCache() *mockCache {
	return &mockCache{vouchers: make(map[string]*models.Voucher)}
}

func (m *mockCache) GetVoucher(ctx context.Context, code string) (*models.Voucher, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.vouchers[code]
	return v, ok, nil
}

func (m *mockCache) SetVoucher(ctx context.Context, voucher *models.Voucher, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *voucher
	m.vouchers[voucher.Code] = &copied
	return nil
}

func (m *mockCache) Close() error                     { return nil }
func (m *mockCache) Health(ctx context.Context) error { return nil }

// staticGate grants or denies access to every tenant
type staticGate struct {
	allowed bool
	err     error
}

func (g staticGate) HasAccess(ctx context.Context, tenantID string) (bool, error) {
	return g.allowed, g.err
}

// recordingProvider records every send and fails contacts listed in failFor
type recordingProvider struct {
	mu      sync.Mutex
	sent    map[string]string
	failFor map[string]string
}

func newRecordingProvider(failFor map[string]string) *recordingProvider {
	return &recordingProvider{sent: make(map[string]string), failFor: failFor}
}

func (p *recordingProvider) Send(ctx context.Context, contact, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[contact] = text
	if reason, ok := p.failFor[contact]; ok {
		return channel.NewSendError(nil, "%s", reason)
	}
	return nil
}

func (p *recordingProvider) texts() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.sent))
	for k, v := range p.sent {
		out[k] = v
	}
	return out
}

// staticResolver hands out the same provider for every channel
type staticResolver struct {
	provider channel.Provider
}

func (r staticResolver) Resolve(ctx context.Context, tenantID string, ch models.Channel) (channel.Provider, error) {
	return r.provider, nil
}

// sampleHistories has one customer in both completed and cancelled
func sampleHistories() []*models.CustomerHistory {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*models.CustomerHistory{
		{Contact: "+201000000001", Name: "Sara", FirstOrderAt: base, OrderStatuses: []string{"completed", "cancelled"}},
		{Contact: "+201000000002", Name: "Omar", FirstOrderAt: base.Add(time.Hour), OrderStatuses: []string{"completed"}},
		{Contact: "+201000000003", Name: "Mona", FirstOrderAt: base.Add(2 * time.Hour), OrderStatuses: []string{"pending"}},
		{Contact: "+201000000004", Name: "Ali", FirstOrderAt: base.Add(3 * time.Hour), OrderStatuses: []string{"failed_delivery", "pending"}},
	}
}
