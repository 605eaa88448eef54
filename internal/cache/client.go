package cache

import (
	"context"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// Client defines the interface for cache operations
type Client interface {
	// GetVoucher returns a cached voucher lookup; found is false on a miss
	GetVoucher(ctx context.Context, code string) (voucher *models.Voucher, found bool, err error)

	// SetVoucher caches a voucher lookup result, including negative results
	SetVoucher(ctx context.Context, voucher *models.Voucher, ttl time.Duration) error

	// Close closes the cache connection
	Close() error

	// Health checks if the cache is healthy
	Health(ctx context.Context) error
}
