package channel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardConfig bounds each send of a guarded provider
type GuardConfig struct {
	// Timeout applies to every individual send
	Timeout time.Duration
	// RatePerSecond limits sends; zero disables the limiter
	RatePerSecond float64
	Burst         int
}

// guardedProvider adds a per-send timeout, a rate limit and a circuit breaker
// around a provider. Every failure it produces is a *SendError.
type guardedProvider struct {
	name    string
	next    Provider
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Guard wraps next with the limits of cfg
func Guard(name string, next Provider, cfg GuardConfig, logger *slog.Logger) Provider {
	g := &guardedProvider{
		name:    name,
		next:    next,
		timeout: cfg.Timeout,
	}

	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if 10 consecutive failures or 80% failure rate with at least 20 requests
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("channel circuit breaker state changed",
				slog.String("circuit_breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return g
}

// Send applies the limiter, the breaker and the timeout, in that order
func (g *guardedProvider) Send(ctx context.Context, contact, text string) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return NewSendError(err, "%s: rate limit wait aborted: %v", g.name, err)
		}
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.next.Send(ctx, contact, text)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewSendError(err, "%s: circuit open, send skipped", g.name)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewSendError(err, "%s: send timed out after %s", g.name, g.timeout)
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return err
	}
	return NewSendError(err, "%s: %v", g.name, err)
}
