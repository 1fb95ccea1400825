package nlp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/soundprediction/multirag/pkg/config"
	"github.com/soundprediction/multirag/pkg/types"
)

// RouterClient routes requests to specific models based on the usage tag
// carried in the request context.
type RouterClient struct {
	providers     map[string]Client
	rules         []config.RouterRule
	defaultClient Client
}

// NewRouterClient creates a new router client
func NewRouterClient(providers map[string]Client, rules []config.RouterRule) (*RouterClient, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	for _, rule := range rules {
		if _, ok := providers[rule.Provider]; !ok {
			return nil, fmt.Errorf("router rule for usage %q references unknown model %q", rule.Usage, rule.Provider)
		}
	}

	defaultClient, ok := providers["default"]
	if !ok {
		// Deterministic pick when no model is named default
		names := make([]string, 0, len(providers))
		for name := range providers {
			names = append(names, name)
		}
		sort.Strings(names)
		defaultClient = providers[names[0]]
	}

	return &RouterClient{
		providers:     providers,
		rules:         rules,
		defaultClient: defaultClient,
	}, nil
}

// clientFor determines which client to use based on context
func (r *RouterClient) clientFor(ctx context.Context) (Client, Client) {
	usage := types.UsageFromContext(ctx)
	if usage == "" {
		return r.defaultClient, nil
	}

	for _, rule := range r.rules {
		if strings.EqualFold(rule.Usage, usage) {
			primary := r.providers[rule.Provider]
			var fallback Client
			if rule.Fallback != "" {
				fallback = r.providers[rule.Fallback]
			}
			return primary, fallback
		}
	}

	return r.defaultClient, nil
}

// Chat implements Client with routing and fallback
func (r *RouterClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	primary, fallback := r.clientFor(ctx)

	resp, err := primary.Chat(ctx, messages)
	if err != nil && fallback != nil && ctx.Err() == nil {
		return fallback.Chat(ctx, messages)
	}
	return resp, err
}

// ChatJSON implements Client with routing and fallback
func (r *RouterClient) ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error) {
	primary, fallback := r.clientFor(ctx)

	resp, err := primary.ChatJSON(ctx, messages)
	if err != nil && fallback != nil && ctx.Err() == nil {
		return fallback.ChatJSON(ctx, messages)
	}
	return resp, err
}

// Close closes all providers
func (r *RouterClient) Close() error {
	var errs []error
	for id, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
