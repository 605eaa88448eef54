package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/channel"
	"github.com/Raymond9734/storefront-outreach/internal/metrics"
	"github.com/Raymond9734/storefront-outreach/internal/models"
	"github.com/Raymond9734/storefront-outreach/internal/repository"
	"github.com/Raymond9734/storefront-outreach/internal/worker"
)

// Dispatch outcome labels
const (
	dispatchCompleted = "completed"
	dispatchRejected  = "rejected"
	dispatchError     = "error"
)

// writeAttempts bounds retries of the bookkeeping writes made after sends started
const writeAttempts = 3

// DispatchService sends campaigns to their segment
type DispatchService interface {
	// Dispatch sends a draft campaign and returns once every recipient was processed
	Dispatch(ctx context.Context, tenantID string, campaignID int64) (*DispatchResult, error)
	// DispatchAsync moves a draft campaign to sending and completes delivery in the background
	DispatchAsync(ctx context.Context, tenantID string, campaignID int64) (*DispatchAccepted, error)
	// Wait blocks until background dispatches have finished
	Wait()
}

type dispatchService struct {
	campaignRepo repository.CampaignRepository
	logRepo      repository.MessageLogRepository
	segments     SegmentService
	templateSvc  TemplateService
	gate         AccessGate
	providers    channel.Resolver
	pool         *worker.Pool
	metrics      *metrics.Metrics
	now          func() time.Time
	logger       *slog.Logger

	background sync.WaitGroup
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	campaignRepo repository.CampaignRepository,
	logRepo repository.MessageLogRepository,
	segments SegmentService,
	templateSvc TemplateService,
	gate AccessGate,
	providers channel.Resolver,
	pool *worker.Pool,
	m *metrics.Metrics,
	logger *slog.Logger,
) DispatchService {
	return &dispatchService{
		campaignRepo: campaignRepo,
		logRepo:      logRepo,
		segments:     segments,
		templateSvc:  templateSvc,
		gate:         gate,
		providers:    providers,
		pool:         pool,
		metrics:      m,
		now:          time.Now,
		logger:       logger,
	}
}

// dispatchJob is a campaign that has left draft and must be delivered
type dispatchJob struct {
	campaign   *models.Campaign
	recipients []models.Recipient
	provider   channel.Provider
}

// Dispatch runs the whole delivery. Once the campaign is sending the work
// continues even if ctx is cancelled, so counters always match the logs.
func (s *dispatchService) Dispatch(ctx context.Context, tenantID string, campaignID int64) (*DispatchResult, error) {
	job, err := s.prepare(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	return s.run(context.WithoutCancel(ctx), job)
}

// DispatchAsync validates and transitions synchronously, then delivers in the background
func (s *dispatchService) DispatchAsync(ctx context.Context, tenantID string, campaignID int64) (*DispatchAccepted, error) {
	job, err := s.prepare(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.run(bg, job); err != nil {
			s.logger.Error("background dispatch failed",
				slog.Int64("campaign_id", campaignID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return &DispatchAccepted{
		CampaignID:      campaignID,
		Status:          models.CampaignStatusSending,
		RecipientsCount: len(job.recipients),
	}, nil
}

// Wait blocks until background dispatches have finished
func (s *dispatchService) Wait() {
	s.background.Wait()
}

// prepare performs every check that may reject a dispatch, then moves the
// campaign out of draft. Nothing is sent and nothing changes when it fails.
func (s *dispatchService) prepare(ctx context.Context, tenantID string, campaignID int64) (*dispatchJob, error) {
	job, err := s.load(ctx, tenantID, campaignID)
	if err != nil {
		s.metrics.ObserveDispatch(outcome(err))
		return nil, err
	}
	return job, nil
}

func (s *dispatchService) load(ctx context.Context, tenantID string, campaignID int64) (*dispatchJob, error) {
	campaign, err := loadOwnedCampaign(ctx, s.campaignRepo, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	if !campaign.CanBeSent() {
		return nil, models.ErrInvalidStateWithMsg(
			fmt.Sprintf("campaign with status '%s' cannot be sent", campaign.Status),
		)
	}

	allowed, err := s.gate.HasAccess(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if !allowed {
		s.logger.Info("dispatch denied by subscription",
			slog.Int64("campaign_id", campaignID),
			slog.String("tenant_id", tenantID),
		)
		return nil, models.ErrSubscriptionLockedWithMsg("subscription does not allow sending campaigns")
	}

	provider, err := s.providers.Resolve(ctx, tenantID, campaign.Channel)
	if err != nil {
		return nil, err
	}

	recipients, err := s.segments.Resolve(ctx, tenantID, campaign.TargetSegment)
	if err != nil {
		return nil, err
	}

	// Conditional on draft: of two concurrent dispatches only one gets here
	if err := s.campaignRepo.MarkSending(ctx, campaign.ID, len(recipients)); err != nil {
		return nil, err
	}
	campaign.Status = models.CampaignStatusSending
	campaign.RecipientsCount = len(recipients)

	s.logger.Info("campaign sending",
		slog.Int64("campaign_id", campaign.ID),
		slog.String("tenant_id", tenantID),
		slog.String("channel", string(campaign.Channel)),
		slog.Int("recipients", len(recipients)),
	)

	return &dispatchJob{campaign: campaign, recipients: recipients, provider: provider}, nil
}

// run fans the recipients out over the pool and closes the campaign
func (s *dispatchService) run(ctx context.Context, job *dispatchJob) (*DispatchResult, error) {
	start := s.now()
	var sent, failed int64

	s.pool.Run(ctx, len(job.recipients), func(ctx context.Context, i int) {
		delivered := false
		// Counted even when deliver panics; the pool recovers and logs the panic
		defer func() {
			if delivered {
				atomic.AddInt64(&sent, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
		}()
		delivered = s.deliver(ctx, job, job.recipients[i])
	})

	result := &DispatchResult{
		Sent:   int(atomic.LoadInt64(&sent)),
		Failed: int(atomic.LoadInt64(&failed)),
	}

	err := retryWrite(ctx, func() error {
		return s.campaignRepo.MarkSent(ctx, job.campaign.ID, result.Sent, result.Failed, s.now())
	})
	if err != nil {
		s.metrics.ObserveDispatch(dispatchError)
		s.logger.Error("failed to mark campaign sent",
			slog.Int64("campaign_id", job.campaign.ID),
			slog.Int("sent", result.Sent),
			slog.Int("failed", result.Failed),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to complete campaign: %w", err)
	}

	s.metrics.ObserveDispatch(dispatchCompleted)
	s.logger.Info("campaign sent",
		slog.Int64("campaign_id", job.campaign.ID),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
		slog.Duration("took", s.now().Sub(start)),
	)

	return result, nil
}

// deliver sends to one recipient and records the attempt. It reports whether the send succeeded.
func (s *dispatchService) deliver(ctx context.Context, job *dispatchJob, recipient models.Recipient) bool {
	text := s.templateSvc.Render(job.campaign.MessageTemplate, recipientVars(job.campaign.Variables, recipient))

	started := time.Now()
	sendErr := safeSend(ctx, job.provider, recipient.Contact, text)

	entry := &models.MessageLog{
		CampaignID:      job.campaign.ID,
		CustomerContact: recipient.Contact,
		CustomerName:    recipient.Name,
		Status:          models.MessageStatusSent,
		SentAt:          s.now(),
	}
	if sendErr != nil {
		reason := channel.Reason(sendErr)
		entry.Status = models.MessageStatusFailed
		entry.ErrorMessage = &reason

		s.logger.Warn("message send failed",
			slog.Int64("campaign_id", job.campaign.ID),
			slog.String("contact", recipient.Contact),
			slog.String("error", reason),
		)
	}

	s.metrics.ObserveSend(string(job.campaign.Channel), entry.Status, time.Since(started))

	if err := retryWrite(ctx, func() error { return s.logRepo.Create(ctx, entry) }); err != nil {
		s.logger.Error("failed to write message log",
			slog.Int64("campaign_id", job.campaign.ID),
			slog.String("contact", recipient.Contact),
			slog.String("status", entry.Status),
			slog.String("error", err.Error()),
		)
	}

	return sendErr == nil
}

// safeSend turns a provider panic into a SendError
func safeSend(ctx context.Context, p channel.Provider, contact, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = channel.NewSendError(nil, "provider panicked: %v", r)
		}
	}()
	return p.Send(ctx, contact, text)
}

func retryWrite(ctx context.Context, write func() error) error {
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err = write(); err == nil {
			return nil
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		if attempt < writeAttempts {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return err
}

func outcome(err error) string {
	if models.ErrorCode(err) != "" {
		return dispatchRejected
	}
	return dispatchError
}
