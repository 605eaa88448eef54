package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// Factory builds a provider from a tenant's credentials
type Factory func(creds Credentials, client *http.Client) Provider

// Factories is the lookup table from channel variant to implementation
var Factories = map[models.Channel]Factory{
	models.ChannelChatBotA: NewChatBotA,
	models.ChannelChatBotB: NewChatBotB,
	models.ChannelChatBotC: NewChatBotC,
}

// CredentialSource returns a tenant's credentials for a channel. It is backed
// by the bot configuration owned outside this service.
type CredentialSource interface {
	Credentials(ctx context.Context, tenantID string, ch models.Channel) (Credentials, error)
}

// StaticCredentials serves the same credentials to every tenant
type StaticCredentials map[models.Channel]Credentials

// Credentials returns the configured credentials of ch
func (s StaticCredentials) Credentials(_ context.Context, _ string, ch models.Channel) (Credentials, error) {
	creds, ok := s[ch]
	if !ok {
		return Credentials{}, models.ErrInvalidInput(fmt.Sprintf("channel %s is not configured", ch))
	}
	return creds, nil
}

// Resolver turns a (tenant, channel) pair into a ready provider
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, ch models.Channel) (Provider, error)
}

// Registry resolves providers through the factory table and keeps one guarded
// instance per (tenant, channel) so breaker and limiter state persist across campaigns.
type Registry struct {
	factories map[models.Channel]Factory
	creds     CredentialSource
	client    *http.Client
	guard     GuardConfig
	logger    *slog.Logger

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry creates a registry over the default factory table
func NewRegistry(creds CredentialSource, client *http.Client, guard GuardConfig, logger *slog.Logger) *Registry {
	if client == nil {
		client = &http.Client{}
	}
	return &Registry{
		factories: Factories,
		creds:     creds,
		client:    client,
		guard:     guard,
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// WithFactory overrides the implementation of one channel
func (r *Registry) WithFactory(ch models.Channel, f Factory) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	factories := make(map[models.Channel]Factory, len(r.factories)+1)
	for k, v := range r.factories {
		factories[k] = v
	}
	factories[ch] = f
	r.factories = factories
	r.providers = make(map[string]Provider)
	return r
}

// Resolve returns the guarded provider of a tenant's channel
func (r *Registry) Resolve(ctx context.Context, tenantID string, ch models.Channel) (Provider, error) {
	key := tenantID + "/" + string(ch)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[key]; ok {
		return p, nil
	}

	factory, ok := r.factories[ch]
	if !ok {
		return nil, models.ErrInvalidInput(fmt.Sprintf("unsupported channel: %s", ch))
	}

	creds, err := r.creds.Credentials(ctx, tenantID, ch)
	if err != nil {
		return nil, err
	}

	p := Guard(key, factory(creds, r.client), r.guard, r.logger)
	r.providers[key] = p

	r.logger.Info("channel provider resolved",
		slog.String("tenant_id", tenantID),
		slog.String("channel", string(ch)),
	)

	return p, nil
}

// Invalidate drops cached providers of a tenant after its bot configuration changed
func (r *Registry) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range models.Channels {
		delete(r.providers, tenantID+"/"+string(ch))
	}
}
