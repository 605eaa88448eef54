package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

func newTestCampaignService() (CampaignService, *mockCampaignRepository, *mockMessageLogRepository) {
	campaigns := newMockCampaignRepository()
	logs := &mockMessageLogRepository{}
	return NewCampaignService(campaigns, logs, NewTemplateService(), testLogger()), campaigns, logs
}

func validCreateRequest() *CreateCampaignRequest {
	return &CreateCampaignRequest{
		Name:           "Eid promo",
		Message:        "Hi {name}, enjoy 10% off",
		TargetCategory: models.SegmentCompleted,
		Channel:        models.ChannelChatBotA,
	}
}

func TestCampaignService_Create(t *testing.T) {
	svc, repo, _ := newTestCampaignService()
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "tenant-1", validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Nil(t, campaign.SentAt)

	stored, err := repo.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", stored.TenantID)
}

func TestCampaignService_Create_ValidationWritesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateCampaignRequest)
	}{
		{"missing name", func(r *CreateCampaignRequest) { r.Name = "" }},
		{"blank message", func(r *CreateCampaignRequest) { r.Message = "   " }},
		{"unknown segment", func(r *CreateCampaignRequest) { r.TargetCategory = "vip" }},
		{"missing channel", func(r *CreateCampaignRequest) { r.Channel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestCampaignService()
			req := validCreateRequest()
			tt.mutate(req)

			_, err := svc.Create(context.Background(), "tenant-1", req)
			require.Error(t, err)
			assert.Equal(t, models.CodeInvalidInput, models.ErrorCode(err))

			list, _ := repo.ListByTenant(context.Background(), "tenant-1")
			assert.Empty(t, list)
		})
	}
}

func TestCampaignService_GetHidesOtherTenants(t *testing.T) {
	svc, _, _ := newTestCampaignService()
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "tenant-1", validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "tenant-2", campaign.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	got, err := svc.Get(ctx, "tenant-1", campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign.Name, got.Name)
}

func TestCampaignService_UpdateDraft(t *testing.T) {
	svc, repo, _ := newTestCampaignService()
	ctx := context.Background()

	campaign, err := svc.Create(ctx, "tenant-1", validCreateRequest())
	require.NoError(t, err)

	req := validCreateRequest()
	req.Name = "Eid promo v2"
	req.TargetCategory = models.SegmentAll
	req.Variables = map[string]string{"store": "Nile Shop"}

	updated, err := svc.UpdateDraft(ctx, "tenant-1", campaign.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Eid promo v2", updated.Name)
	assert.Equal(t, "Nile Shop", updated.Variables["store"])

	stored, _ := repo.GetByID(ctx, campaign.ID)
	stored.Status = models.CampaignStatusSending
	repo.set(stored)

	_, err = svc.UpdateDraft(ctx, "tenant-1", campaign.ID, req)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidState, models.ErrorCode(err))
}

func TestCampaignService_Delete(t *testing.T) {
	tests := []struct {
		status   models.CampaignStatus
		wantCode string
	}{
		{models.CampaignStatusDraft, ""},
		{models.CampaignStatusSent, ""},
		{models.CampaignStatusSending, models.CodeInvalidState},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc, repo, logs := newTestCampaignService()
			ctx := context.Background()

			repo.set(&models.Campaign{ID: 7, TenantID: "tenant-1", Status: tt.status})
			require.NoError(t, logs.Create(ctx, &models.MessageLog{CampaignID: 7, Status: models.MessageStatusSent}))

			err := svc.Delete(ctx, "tenant-1", 7)
			if tt.wantCode == "" {
				require.NoError(t, err)
				_, err = repo.GetByID(ctx, 7)
				assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, models.ErrorCode(err))

			stored, err := repo.GetByID(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)

			remaining, _ := logs.CountByCampaign(ctx, 7)
			assert.Equal(t, 1, remaining)
		})
	}
}

func TestCampaignService_Preview(t *testing.T) {
	svc, _, _ := newTestCampaignService()

	result, err := svc.Preview(context.Background(), &PreviewRequest{
		Message:   "Hi {name} from {store} #{orderId}",
		Name:      "Sara",
		Variables: map[string]string{"store": "Nile Shop"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Sara from Nile Shop #{orderId}", result.RenderedMessage)
	assert.Equal(t, []string{"orderId"}, result.Unresolved)

	_, err = svc.Preview(context.Background(), &PreviewRequest{Message: ""})
	assert.Equal(t, models.CodeInvalidInput, models.ErrorCode(err))
}

func TestCampaignService_RecoverStale(t *testing.T) {
	svc, repo, logs := newTestCampaignService()
	ctx := context.Background()

	longAgo := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-time.Minute)

	// died after two of five deliveries
	repo.set(&models.Campaign{ID: 1, TenantID: "tenant-1", Status: models.CampaignStatusSending, RecipientsCount: 5, SendingStartedAt: &longAgo})
	require.NoError(t, logs.Create(ctx, &models.MessageLog{CampaignID: 1, Status: models.MessageStatusSent}))
	require.NoError(t, logs.Create(ctx, &models.MessageLog{CampaignID: 1, Status: models.MessageStatusFailed}))

	// still within its window
	repo.set(&models.Campaign{ID: 2, TenantID: "tenant-1", Status: models.CampaignStatusSending, RecipientsCount: 3, SendingStartedAt: &recent})
	repo.set(&models.Campaign{ID: 3, TenantID: "tenant-1", Status: models.CampaignStatusDraft})

	n, err := svc.RecoverStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	closed, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, closed.Status)
	assert.Equal(t, 1, closed.SentCount)
	assert.Equal(t, 4, closed.FailedCount)
	assert.Equal(t, closed.RecipientsCount, closed.SentCount+closed.FailedCount)
	require.NotNil(t, closed.SentAt)

	// closed campaigns can be deleted again
	require.NoError(t, svc.Delete(ctx, "tenant-1", 1))

	inFlight, _ := repo.GetByID(ctx, 2)
	assert.Equal(t, models.CampaignStatusSending, inFlight.Status)

	n, err = svc.RecoverStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
