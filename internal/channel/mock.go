package channel

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// mockProvider simulates a messaging backend with a configurable success rate
type mockProvider struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewMockProvider creates a simulated provider.
// successRate is the probability of success (0.0 to 1.0), default 0.92.
func NewMockProvider(successRate float64) Provider {
	if successRate <= 0 || successRate > 1.0 {
		successRate = 0.92
	}

	return &mockProvider{
		successRate: successRate,
		minDelay:    50 * time.Millisecond,
		maxDelay:    200 * time.Millisecond,
	}
}

// Send simulates sending a message
func (p *mockProvider) Send(ctx context.Context, contact, text string) error {
	delay := p.minDelay + time.Duration(rand.Int63n(int64(p.maxDelay-p.minDelay)))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return NewSendError(ctx.Err(), "mock send aborted: %v", ctx.Err())
	}

	if rand.Float64() > p.successRate {
		return NewSendError(errors.New("simulated network error"), "mock provider failed: simulated network error")
	}

	return nil
}
