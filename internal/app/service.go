package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"autodeck/internal/assets"
	"autodeck/internal/llm"
	"autodeck/internal/model"
	"autodeck/internal/render"
	"autodeck/internal/research"
	"autodeck/internal/storage"
	"autodeck/pkg/config"
	"autodeck/pkg/prompts"
)

// Service holds everything a generation run needs. It is safe for concurrent
// use; gateways and their budgets are created on first use and shared.
type Service struct {
	cfg       *config.Config
	prompts   *prompts.Prompts
	providers map[string]ProviderFactory
	research  *research.Aggregator
	resolver  assets.Resolver
	renderer  *render.Renderer
	writer    *render.PPTXWriter
	storage   *storage.LocalStorage
	uploader  storage.Uploader
	closers   []func() error

	mu       sync.Mutex
	budgets  map[string]*llm.Budget
	gateways map[string]*llm.Gateway
}

type ServiceOptions struct {
	Config    *config.Config
	Prompts   *prompts.Prompts
	Providers map[string]ProviderFactory
	Research  *research.Aggregator
	Resolver  assets.Resolver
	Renderer  *render.Renderer
	Writer    *render.PPTXWriter
	Storage   *storage.LocalStorage
	Uploader  storage.Uploader
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:       opts.Config,
		prompts:   opts.Prompts,
		providers: opts.Providers,
		research:  opts.Research,
		resolver:  opts.Resolver,
		renderer:  opts.Renderer,
		writer:    opts.Writer,
		storage:   opts.Storage,
		uploader:  opts.Uploader,
		budgets:   make(map[string]*llm.Budget),
		gateways:  make(map[string]*llm.Gateway),
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Storage() *storage.LocalStorage {
	return s.storage
}

func (s *Service) Uploader() storage.Uploader {
	return s.uploader
}

// Providers returns the names accepted by Gateway, sorted.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Gateway returns the shared gateway for provider and modelName. An empty
// modelName selects the configured model. Every gateway for the same provider
// draws from one Budget.
func (s *Service) Gateway(ctx context.Context, provider, modelName string) (*llm.Gateway, error) {
	factory, ok := s.providers[provider]
	if !ok {
		return nil, model.NewConfigError("provider", "unknown provider %q (available: %s)", provider, strings.Join(s.Providers(), ", "))
	}
	if provider != config.ProviderMock && s.cfg.APIKey(provider) == "" {
		return nil, model.NewConfigError(config.CredentialEnv(provider), "missing API key for provider %q", provider)
	}
	if modelName == "" {
		modelName = s.cfg.ModelFor(provider)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := provider + "/" + modelName
	if gw, ok := s.gateways[key]; ok {
		return gw, nil
	}

	client, err := factory(ctx, s.cfg, modelName)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", provider, err)
	}

	budget, ok := s.budgets[provider]
	if !ok {
		budget = llm.NewBudget(provider, s.cfg.RateLimit.Requests, s.cfg.RateLimit.Window)
		s.budgets[provider] = budget
	}

	gw := llm.NewGateway(provider, client, retryPolicy(s.cfg), budget)
	s.gateways[key] = gw
	return gw, nil
}

// gather returns research for req. The mock provider runs offline, so it
// never triggers lookups.
func (s *Service) gather(ctx context.Context, req model.TopicRequest) model.ResearchItems {
	if s.research == nil || req.Provider == config.ProviderMock {
		return nil
	}
	return s.research.Gather(ctx, req.Topic, req.Language)
}

func (s *Service) resolverFor(provider string) assets.Resolver {
	if provider == config.ProviderMock {
		return assets.Placeholder{}
	}
	return s.resolver
}

// Close releases clients that hold connections.
func (s *Service) Close() error {
	var errs []string
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close service: %s", strings.Join(errs, "; "))
	}
	return nil
}

func retryPolicy(cfg *config.Config) llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts:      cfg.Retry.MaxAttempts,
		BaseDelay:        cfg.Retry.BaseDelay,
		MaxDelay:         cfg.Retry.MaxDelay,
		MalformedRetries: cfg.Retry.MalformedRetries,
	}
}
