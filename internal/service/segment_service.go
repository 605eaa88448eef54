package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Raymond9734/storefront-outreach/internal/models"
	"github.com/Raymond9734/storefront-outreach/internal/repository"
)

// SegmentService classifies a tenant's customers by order history
type SegmentService interface {
	Resolve(ctx context.Context, tenantID string, segment models.Segment) ([]models.Recipient, error)
	CountBySegment(ctx context.Context, tenantID string) (models.SegmentCounts, error)
}

type segmentService struct {
	customerRepo repository.CustomerRepository
	logger       *slog.Logger
}

// NewSegmentService creates a new segment service
func NewSegmentService(customerRepo repository.CustomerRepository, logger *slog.Logger) SegmentService {
	return &segmentService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// Resolve returns the members of segment, one per contact, in first-order order
func (s *segmentService) Resolve(ctx context.Context, tenantID string, segment models.Segment) ([]models.Recipient, error) {
	if !models.IsValidSegment(segment) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("invalid segment: %s", segment))
	}

	histories, err := s.customerRepo.ListHistories(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment: %w", err)
	}

	recipients := []models.Recipient{}
	seen := make(map[string]bool, len(histories))
	for _, h := range histories {
		if seen[h.Contact] {
			continue
		}
		seen[h.Contact] = true
		if !h.InSegment(segment) {
			continue
		}
		recipients = append(recipients, models.Recipient{Contact: h.Contact, Name: h.Name})
	}

	s.logger.Debug("segment resolved",
		slog.String("tenant_id", tenantID),
		slog.String("segment", string(segment)),
		slog.Int("recipients", len(recipients)),
	)

	return recipients, nil
}

// CountBySegment returns the size of every built-in segment.
// Counts use the same membership predicate as Resolve.
func (s *segmentService) CountBySegment(ctx context.Context, tenantID string) (models.SegmentCounts, error) {
	histories, err := s.customerRepo.ListHistories(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count segments: %w", err)
	}

	counts := make(models.SegmentCounts, len(models.Segments))
	for _, segment := range models.Segments {
		counts[segment] = 0
	}

	seen := make(map[string]bool, len(histories))
	for _, h := range histories {
		if seen[h.Contact] {
			continue
		}
		seen[h.Contact] = true
		for _, segment := range models.Segments {
			if h.InSegment(segment) {
				counts[segment]++
			}
		}
	}

	return counts, nil
}
