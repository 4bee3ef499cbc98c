package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath        = "config.yaml"
	defaultOutputDir         = "./output"
	defaultProvider          = "openai"
	defaultStyle             = "minimalist"
	defaultLanguage          = "English"
	defaultSlideCount        = 10
	defaultParallelism       = 4
	defaultOpenAIModel       = "gpt-4o"
	defaultAnthropicModel    = "claude-3-5-sonnet-20241022"
	defaultGoogleModel       = "gemini-2.0-flash"
	defaultGroqModel         = "llama-3.3-70b-versatile"
	defaultDeepSeekModel     = "deepseek-chat"
	defaultMaxTokens         = 4096
	defaultMaxAttempts       = 3
	defaultBaseDelay         = 2 * time.Second
	defaultMaxDelay          = 60 * time.Second
	defaultMalformedRetries  = 2
	defaultStructurerRetries = 1
	defaultRateLimitRequests = 60
	defaultRateLimitWindow   = time.Minute
	defaultResearchItems     = 8
	defaultResearchChars     = 12000
	defaultResearchPerSource = 5
	defaultResearchTimeout   = 15 * time.Second
	defaultAssetTimeout      = 30 * time.Second
	defaultAssetRetries      = 2
	defaultAssetCacheSize    = 128
	defaultMinImageBytes     = 5000
	defaultGCSPrefix         = "decks"
)

const ProviderMock = "mock"

// Credentials are read from the environment only. Secret Manager fills the
// ones left empty when secrets.project is configured.
type Credentials struct {
	OpenAIAPIKey         string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey      string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey         string `env:"GOOGLE_API_KEY"`
	GroqAPIKey           string `env:"GROQ_API_KEY"`
	DeepSeekAPIKey       string `env:"DEEPSEEK_API_KEY"`
	GoogleSearchAPIKey   string `env:"GOOGLE_SEARCH_API_KEY"`
	GoogleSearchEngineID string `env:"GOOGLE_SEARCH_ENGINE_ID"`
	GCSBucket            string `env:"GCS_BUCKET"`
	GCPProject           string `env:"GOOGLE_CLOUD_PROJECT"`
}

type Config struct {
	Credentials `yaml:"-"`

	Generation GenerationConfig `yaml:"generation"`
	Models     ModelsConfig     `yaml:"models"`
	Retry      RetryConfig      `yaml:"retry"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Research   ResearchConfig   `yaml:"research"`
	Assets     AssetsConfig     `yaml:"assets"`
	GCS        GCSConfig        `yaml:"gcs"`
	Secrets    SecretsConfig    `yaml:"secrets"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type GenerationConfig struct {
	Provider    string `yaml:"provider"`
	Style       string `yaml:"style"`
	Language    string `yaml:"language"`
	SlideCount  int    `yaml:"slides"`
	Parallelism int    `yaml:"parallelism"`
	OutputDir   string `yaml:"output_dir"`
	PromptsPath string `yaml:"prompts_path"`
}

type ModelsConfig struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
	Groq      string `yaml:"groq"`
	DeepSeek  string `yaml:"deepseek"`
	MaxTokens int    `yaml:"max_tokens"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	MalformedRetries  int           `yaml:"malformed_retries"`
	StructurerRetries int           `yaml:"structurer_retries"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type ResearchConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	MaxItems  int           `yaml:"max_items"`
	MaxChars  int           `yaml:"max_chars"`
	PerSource int           `yaml:"per_source"`
	Timeout   time.Duration `yaml:"timeout"`
}

type AssetsConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	CacheSize     int           `yaml:"cache_size"`
	MinImageBytes int           `yaml:"min_image_bytes"`
}

type GCSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

type SecretsConfig struct {
	Project string `yaml:"project"`
}

type MetricsConfig struct {
	// Textfile is where batch runs write Prometheus metrics. Empty disables it.
	Textfile string `yaml:"textfile"`
}

// Load reads .env, config.yaml and the process environment, then applies
// defaults. A missing config.yaml is not an error.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg.Credentials); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	applyDefaults(cfg)

	if cfg.Secrets.Project != "" {
		if err := resolveSecrets(ctx, cfg); err != nil {
			slog.Warn("Secret Manager lookup failed", "project", cfg.Secrets.Project, "error", err)
		}
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("No config file found, using defaults", "path", path)
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyGenerationDefaults(cfg)
	applyModelDefaults(cfg)
	applyRetryDefaults(cfg)
	applyRateLimitDefaults(cfg)
	applyResearchDefaults(cfg)
	applyAssetDefaults(cfg)
	applyGCSDefaults(cfg)
}

func applyGenerationDefaults(cfg *Config) {
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = defaultProvider
	}
	if cfg.Generation.Style == "" {
		cfg.Generation.Style = defaultStyle
	}
	if cfg.Generation.Language == "" {
		cfg.Generation.Language = defaultLanguage
	}
	if cfg.Generation.SlideCount == 0 {
		cfg.Generation.SlideCount = defaultSlideCount
	}
	if cfg.Generation.Parallelism <= 0 {
		cfg.Generation.Parallelism = defaultParallelism
	}
	if cfg.Generation.OutputDir == "" {
		cfg.Generation.OutputDir = defaultOutputDir
	}
}

func applyModelDefaults(cfg *Config) {
	if cfg.Models.OpenAI == "" {
		cfg.Models.OpenAI = defaultOpenAIModel
	}
	if cfg.Models.Anthropic == "" {
		cfg.Models.Anthropic = defaultAnthropicModel
	}
	if cfg.Models.Google == "" {
		cfg.Models.Google = defaultGoogleModel
	}
	if cfg.Models.Groq == "" {
		cfg.Models.Groq = defaultGroqModel
	}
	if cfg.Models.DeepSeek == "" {
		cfg.Models.DeepSeek = defaultDeepSeekModel
	}
	if cfg.Models.MaxTokens == 0 {
		cfg.Models.MaxTokens = defaultMaxTokens
	}
}

func applyRetryDefaults(cfg *Config) {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = defaultBaseDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = defaultMaxDelay
	}
	if cfg.Retry.MalformedRetries == 0 {
		cfg.Retry.MalformedRetries = defaultMalformedRetries
	}
	if cfg.Retry.StructurerRetries == 0 {
		cfg.Retry.StructurerRetries = defaultStructurerRetries
	}
}

func applyRateLimitDefaults(cfg *Config) {
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = defaultRateLimitRequests
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = defaultRateLimitWindow
	}
}

func applyResearchDefaults(cfg *Config) {
	if cfg.Research.Enabled == nil {
		enabled := true
		cfg.Research.Enabled = &enabled
	}
	if cfg.Research.MaxItems == 0 {
		cfg.Research.MaxItems = defaultResearchItems
	}
	if cfg.Research.MaxChars == 0 {
		cfg.Research.MaxChars = defaultResearchChars
	}
	if cfg.Research.PerSource == 0 {
		cfg.Research.PerSource = defaultResearchPerSource
	}
	if cfg.Research.Timeout == 0 {
		cfg.Research.Timeout = defaultResearchTimeout
	}
}

func applyAssetDefaults(cfg *Config) {
	if cfg.Assets.Timeout == 0 {
		cfg.Assets.Timeout = defaultAssetTimeout
	}
	if cfg.Assets.Retries == 0 {
		cfg.Assets.Retries = defaultAssetRetries
	}
	if cfg.Assets.CacheSize == 0 {
		cfg.Assets.CacheSize = defaultAssetCacheSize
	}
	if cfg.Assets.MinImageBytes == 0 {
		cfg.Assets.MinImageBytes = defaultMinImageBytes
	}
}

func applyGCSDefaults(cfg *Config) {
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = defaultGCSPrefix
	}
}

// ResearchEnabled reports whether research lookups should run.
func (c *Config) ResearchEnabled() bool {
	return c.Research.Enabled == nil || *c.Research.Enabled
}

// APIKey returns the credential for provider. The mock provider needs none.
func (c *Config) APIKey(provider string) string {
	switch normalizeProvider(provider) {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "google":
		return c.GoogleAPIKey
	case "groq":
		return c.GroqAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	}
	return ""
}

// CredentialEnv names the environment variable holding provider's key.
func CredentialEnv(provider string) string {
	switch normalizeProvider(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "deepseek":
		return "DEEPSEEK_API_KEY"
	}
	return ""
}

// ModelFor returns the configured model for provider.
func (c *Config) ModelFor(provider string) string {
	switch normalizeProvider(provider) {
	case "openai":
		return c.Models.OpenAI
	case "anthropic":
		return c.Models.Anthropic
	case "google":
		return c.Models.Google
	case "groq":
		return c.Models.Groq
	case "deepseek":
		return c.Models.DeepSeek
	}
	return ProviderMock
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
