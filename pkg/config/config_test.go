package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(orig) })
	_ = os.Chdir(tmp)
	return tmp
}

func TestLoadFromYAML(t *testing.T) {
	tmp := chdirTemp(t)

	yaml := `
generation:
  provider: anthropic
  style: ocean
  slides: 7
models:
  anthropic: claude-test
retry:
  base_delay: 250ms
  max_attempts: 5
research:
  enabled: false
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Generation.Provider != "anthropic" {
		t.Errorf("Generation.Provider = %q, want anthropic", cfg.Generation.Provider)
	}
	if cfg.Generation.Style != "ocean" {
		t.Errorf("Generation.Style = %q, want ocean", cfg.Generation.Style)
	}
	if cfg.Generation.SlideCount != 7 {
		t.Errorf("Generation.SlideCount = %d, want 7", cfg.Generation.SlideCount)
	}
	if cfg.ModelFor("anthropic") != "claude-test" {
		t.Errorf("ModelFor(anthropic) = %q, want claude-test", cfg.ModelFor("anthropic"))
	}
	if cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("Retry.BaseDelay = %v, want 250ms", cfg.Retry.BaseDelay)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.ResearchEnabled() {
		t.Error("ResearchEnabled() = true, want false")
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Generation.Provider != defaultProvider {
		t.Errorf("Generation.Provider = %q, want %q", cfg.Generation.Provider, defaultProvider)
	}
	if cfg.Generation.Language != "English" {
		t.Errorf("Generation.Language = %q, want English", cfg.Generation.Language)
	}
	if cfg.Generation.SlideCount != 10 {
		t.Errorf("Generation.SlideCount = %d, want 10", cfg.Generation.SlideCount)
	}
	if cfg.Retry.MalformedRetries != 2 {
		t.Errorf("Retry.MalformedRetries = %d, want 2", cfg.Retry.MalformedRetries)
	}
	if cfg.Research.MaxChars != 12000 {
		t.Errorf("Research.MaxChars = %d, want 12000", cfg.Research.MaxChars)
	}
	if cfg.Assets.Timeout != 30*time.Second {
		t.Errorf("Assets.Timeout = %v, want 30s", cfg.Assets.Timeout)
	}
	if !cfg.ResearchEnabled() {
		t.Error("ResearchEnabled() = false, want true by default")
	}
	if cfg.ModelFor("openai") != "gpt-4o" || cfg.ModelFor("google") != "gemini-2.0-flash" {
		t.Errorf("unexpected default models: %+v", cfg.Models)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("OPENAI_API_KEY", "test-openai")
	t.Setenv("GROQ_API_KEY", "test-groq")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.APIKey("openai") != "test-openai" {
		t.Errorf("APIKey(openai) = %q, want test-openai", cfg.APIKey("openai"))
	}
	if cfg.APIKey(" GROQ ") != "test-groq" {
		t.Errorf("APIKey(groq) = %q, want test-groq", cfg.APIKey("groq"))
	}
	if cfg.APIKey(ProviderMock) != "" {
		t.Error("mock provider should not have a key")
	}
	if cfg.GCPProject != "test-project" {
		t.Errorf("GCPProject = %q, want test-project", cfg.GCPProject)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("generation: [unterminated"), 0644)

	if _, err := Load(context.Background()); err == nil {
		t.Error("Load() should fail on malformed config.yaml")
	}
}

func TestCredentialEnv(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "OPENAI_API_KEY"},
		{"anthropic", "ANTHROPIC_API_KEY"},
		{"google", "GOOGLE_API_KEY"},
		{"groq", "GROQ_API_KEY"},
		{"deepseek", "DEEPSEEK_API_KEY"},
		{"mock", ""},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			if got := CredentialEnv(tt.provider); got != tt.want {
				t.Errorf("CredentialEnv(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) AccessSecret(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestFillFromSecrets(t *testing.T) {
	creds := Credentials{OpenAIAPIKey: "from-env"}
	fillFromSecrets(context.Background(), &creds, fakeSecrets{
		"OPENAI_API_KEY":    "from-secret",
		"ANTHROPIC_API_KEY": "anthropic-secret",
	})

	if creds.OpenAIAPIKey != "from-env" {
		t.Errorf("OpenAIAPIKey = %q, env value must win", creds.OpenAIAPIKey)
	}
	if creds.AnthropicAPIKey != "anthropic-secret" {
		t.Errorf("AnthropicAPIKey = %q, want anthropic-secret", creds.AnthropicAPIKey)
	}
	if creds.GoogleAPIKey != "" {
		t.Errorf("GoogleAPIKey = %q, want empty", creds.GoogleAPIKey)
	}
}

func TestSecretVersionName(t *testing.T) {
	got := secretVersionName("proj", "OPENAI_API_KEY")
	want := "projects/proj/secrets/OPENAI_API_KEY/versions/latest"
	if got != want {
		t.Errorf("secretVersionName() = %q, want %q", got, want)
	}
}
