package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

func TestSegmentService_Resolve(t *testing.T) {
	svc := NewSegmentService(&mockCustomerRepository{histories: sampleHistories()}, testLogger())
	ctx := context.Background()

	tests := []struct {
		segment models.Segment
		want    []string
	}{
		{models.SegmentAll, []string{"+201000000001", "+201000000002", "+201000000003", "+201000000004"}},
		{models.SegmentCompleted, []string{"+201000000001", "+201000000002"}},
		{models.SegmentCancelled, []string{"+201000000001"}},
		{models.SegmentPending, []string{"+201000000003", "+201000000004"}},
		{models.SegmentFailedDelivery, []string{"+201000000004"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.segment), func(t *testing.T) {
			recipients, err := svc.Resolve(ctx, "tenant-1", tt.segment)
			require.NoError(t, err)

			contacts := make([]string, 0, len(recipients))
			for _, r := range recipients {
				contacts = append(contacts, r.Contact)
			}
			assert.Equal(t, tt.want, contacts)
		})
	}
}

func TestSegmentService_NonExclusiveMembership(t *testing.T) {
	svc := NewSegmentService(&mockCustomerRepository{histories: sampleHistories()}, testLogger())
	ctx := context.Background()

	completed, err := svc.Resolve(ctx, "tenant-1", models.SegmentCompleted)
	require.NoError(t, err)
	cancelled, err := svc.Resolve(ctx, "tenant-1", models.SegmentCancelled)
	require.NoError(t, err)

	sara := models.Recipient{Contact: "+201000000001", Name: "Sara"}
	assert.Contains(t, completed, sara)
	assert.Contains(t, cancelled, sara)
}

func TestSegmentService_CountsMatchResolve(t *testing.T) {
	histories := append(sampleHistories(),
		// duplicate contact rows collapse to one recipient
		&models.CustomerHistory{Contact: "+201000000002", Name: "Omar", OrderStatuses: []string{"cancelled"}},
		// a contact without orders is in no segment
		&models.CustomerHistory{Contact: "+201000000009", Name: "Nobody"},
	)
	svc := NewSegmentService(&mockCustomerRepository{histories: histories}, testLogger())
	ctx := context.Background()

	counts, err := svc.CountBySegment(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, counts, len(models.Segments))

	for _, segment := range models.Segments {
		recipients, err := svc.Resolve(ctx, "tenant-1", segment)
		require.NoError(t, err)
		assert.Equal(t, len(recipients), counts[segment], "segment %s", segment)
	}
}

func TestSegmentService_EmptyTenantCountsZero(t *testing.T) {
	svc := NewSegmentService(&mockCustomerRepository{}, testLogger())

	counts, err := svc.CountBySegment(context.Background(), "tenant-1")
	require.NoError(t, err)
	for _, segment := range models.Segments {
		assert.Equal(t, 0, counts[segment])
	}
}

func TestSegmentService_Errors(t *testing.T) {
	svc := NewSegmentService(&mockCustomerRepository{histories: sampleHistories()}, testLogger())

	_, err := svc.Resolve(context.Background(), "tenant-1", "vip")
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidInput, models.ErrorCode(err))

	broken := NewSegmentService(&mockCustomerRepository{err: errors.New("connection refused")}, testLogger())
	_, err = broken.Resolve(context.Background(), "tenant-1", models.SegmentAll)
	require.Error(t, err)
	assert.Equal(t, "", models.ErrorCode(err))
}
