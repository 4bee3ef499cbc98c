package app

import (
	"context"
	"fmt"
	"log/slog"

	"autodeck/internal/assets"
	"autodeck/internal/llm"
	"autodeck/internal/llm/anthropic"
	"autodeck/internal/llm/deepseek"
	"autodeck/internal/llm/gemini"
	"autodeck/internal/llm/groq"
	"autodeck/internal/llm/mock"
	"autodeck/internal/llm/openai"
	"autodeck/internal/model"
	"autodeck/internal/render"
	"autodeck/internal/research"
	"autodeck/internal/research/duckduckgo"
	"autodeck/internal/research/wikipedia"
	"autodeck/internal/storage"
	"autodeck/pkg/config"
	"autodeck/pkg/prompts"
)

// ProviderFactory creates the client for one provider and model.
type ProviderFactory func(ctx context.Context, cfg *config.Config, modelName string) (llm.Client, error)

// DefaultProviders is the provider dispatch table.
func DefaultProviders() map[string]ProviderFactory {
	return map[string]ProviderFactory{
		"openai": func(_ context.Context, cfg *config.Config, modelName string) (llm.Client, error) {
			return openai.NewClient(openai.Options{
				APIKey:    cfg.OpenAIAPIKey,
				Model:     modelName,
				MaxTokens: cfg.Models.MaxTokens,
			}), nil
		},
		"anthropic": func(_ context.Context, cfg *config.Config, modelName string) (llm.Client, error) {
			return anthropic.NewClient(anthropic.Options{
				APIKey:    cfg.AnthropicAPIKey,
				Model:     modelName,
				MaxTokens: cfg.Models.MaxTokens,
			}), nil
		},
		"google": func(ctx context.Context, cfg *config.Config, modelName string) (llm.Client, error) {
			return gemini.NewClient(ctx, gemini.Options{
				APIKey:    cfg.GoogleAPIKey,
				Model:     modelName,
				MaxTokens: cfg.Models.MaxTokens,
			})
		},
		"groq": func(_ context.Context, cfg *config.Config, modelName string) (llm.Client, error) {
			return groq.NewClient(groq.Options{
				APIKey: cfg.GroqAPIKey,
				Model:  modelName,
			})
		},
		"deepseek": func(_ context.Context, cfg *config.Config, modelName string) (llm.Client, error) {
			return deepseek.NewClient(deepseek.Options{
				APIKey:    cfg.DeepSeekAPIKey,
				Model:     modelName,
				MaxTokens: cfg.Models.MaxTokens,
			}), nil
		},
		config.ProviderMock: func(context.Context, *config.Config, string) (llm.Client, error) {
			return mock.NewClient(), nil
		},
	}
}

func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := loadPrompts(cfg)
	if err != nil {
		return nil, err
	}

	opts := ServiceOptions{
		Config:    cfg,
		Prompts:   p,
		Providers: DefaultProviders(),
		Renderer:  render.NewRenderer(cfg.Generation.Parallelism),
		Writer:    render.NewPPTXWriter(),
		Storage:   storage.NewLocalStorage(cfg.Generation.OutputDir),
	}

	if cfg.ResearchEnabled() {
		opts.Research = buildResearch(cfg)
	}

	resolver, err := buildResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts.Resolver = resolver

	var closers []func() error
	if cfg.GCS.Enabled {
		if cfg.GCSBucket == "" {
			return nil, model.NewConfigError("GCS_BUCKET", "required when GCS upload is enabled")
		}
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCS.Prefix)
		if err != nil {
			return nil, fmt.Errorf("create GCS storage: %w", err)
		}
		opts.Uploader = gcs
		closers = append(closers, gcs.Close)
	}

	svc := NewService(opts)
	svc.closers = closers
	return svc, nil
}

func loadPrompts(cfg *config.Config) (*prompts.Prompts, error) {
	if cfg.Generation.PromptsPath != "" {
		return prompts.LoadFrom(cfg.Generation.PromptsPath)
	}
	return prompts.Load()
}

func buildResearch(cfg *config.Config) *research.Aggregator {
	timeout := cfg.Research.Timeout
	return research.NewAggregator(research.Config{
		MaxItems:  cfg.Research.MaxItems,
		MaxChars:  cfg.Research.MaxChars,
		PerSource: cfg.Research.PerSource,
		Timeout:   timeout,
	},
		wikipedia.NewClient(wikipedia.Options{Timeout: timeout}),
		duckduckgo.NewClient(duckduckgo.Options{Timeout: timeout}),
	)
}

// buildResolver returns nil when no image search credentials are configured;
// slides then fall through to text layouts.
func buildResolver(ctx context.Context, cfg *config.Config) (assets.Resolver, error) {
	if cfg.GoogleSearchAPIKey == "" || cfg.GoogleSearchEngineID == "" {
		slog.Debug("Image search not configured, slides will use text layouts")
		return nil, nil
	}
	resolver, err := assets.NewGoogle(ctx, assets.GoogleOptions{
		APIKey:        cfg.GoogleSearchAPIKey,
		EngineID:      cfg.GoogleSearchEngineID,
		Timeout:       cfg.Assets.Timeout,
		Retries:       cfg.Assets.Retries,
		CacheSize:     cfg.Assets.CacheSize,
		MinImageBytes: cfg.Assets.MinImageBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("create image resolver: %w", err)
	}
	return resolver, nil
}
