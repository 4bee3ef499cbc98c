package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

type secretAccessor interface {
	AccessSecret(ctx context.Context, name string) (string, error)
}

type gcpSecrets struct {
	client  *secretmanager.Client
	project string
}

func (s *gcpSecrets) AccessSecret(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretVersionName(s.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func secretVersionName(project, name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name)
}

func resolveSecrets(ctx context.Context, cfg *Config) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	fillFromSecrets(ctx, &cfg.Credentials, &gcpSecrets{client: client, project: cfg.Secrets.Project})
	return nil
}

// fillFromSecrets looks up every empty credential by its environment variable
// name. Lookups that fail leave the field empty.
func fillFromSecrets(ctx context.Context, creds *Credentials, accessor secretAccessor) {
	fields := []struct {
		name  string
		value *string
	}{
		{"OPENAI_API_KEY", &creds.OpenAIAPIKey},
		{"ANTHROPIC_API_KEY", &creds.AnthropicAPIKey},
		{"GOOGLE_API_KEY", &creds.GoogleAPIKey},
		{"GROQ_API_KEY", &creds.GroqAPIKey},
		{"DEEPSEEK_API_KEY", &creds.DeepSeekAPIKey},
		{"GOOGLE_SEARCH_API_KEY", &creds.GoogleSearchAPIKey},
		{"GOOGLE_SEARCH_ENGINE_ID", &creds.GoogleSearchEngineID},
	}

	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		secret, err := accessor.AccessSecret(ctx, f.name)
		if err != nil {
			slog.Debug("Secret not available", "name", f.name, "error", err)
			continue
		}
		*f.value = secret
	}
}
