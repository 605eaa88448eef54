package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// VoucherKeyPrefix namespaces voucher lookups
const VoucherKeyPrefix = "voucher:"

// redisClient implements Client using Redis
type redisClient struct {
	client *redis.Client
	logger *slog.Logger
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string
}

// NewRedisClient creates a new Redis cache client
func NewRedisClient(cfg RedisConfig, logger *slog.Logger) (Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis", slog.String("addr", opts.Addr))

	return NewFromRedis(client, logger), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(client *redis.Client, logger *slog.Logger) Client {
	return &redisClient{client: client, logger: logger}
}

// GetVoucher reads a cached voucher lookup
func (c *redisClient) GetVoucher(ctx context.Context, code string) (*models.Voucher, bool, error) {
	data, err := c.client.Get(ctx, VoucherKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get voucher from cache: %w", err)
	}

	var voucher models.Voucher
	if err := json.Unmarshal(data, &voucher); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached voucher: %w", err)
	}

	return &voucher, true, nil
}

// SetVoucher stores a voucher lookup under its normalized code
func (c *redisClient) SetVoucher(ctx context.Context, voucher *models.Voucher, ttl time.Duration) error {
	data, err := json.Marshal(voucher)
	if err != nil {
		return fmt.Errorf("failed to marshal voucher: %w", err)
	}

	if err := c.client.Set(ctx, VoucherKeyPrefix+voucher.Code, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache voucher: %w", err)
	}

	c.logger.Debug("voucher cached",
		slog.String("code", voucher.Code),
		slog.Bool("valid", voucher.Valid),
	)

	return nil
}

// Close closes the Redis connection
func (c *redisClient) Close() error {
	c.logger.Info("closing Redis connection")
	return c.client.Close()
}

// Health checks if Redis is healthy
func (c *redisClient) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis health check failed: %w", err)
	}
	return nil
}
