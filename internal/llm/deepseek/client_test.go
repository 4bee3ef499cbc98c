package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

func TestGenerateOutline(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse response
		serverStatus   int
		wantKind       model.ProviderErrorKind
		wantContent    string
	}{
		{
			name: "successfulGeneration",
			serverResponse: response{
				ID:      "test-123",
				Choices: []choice{{Message: message{Role: "assistant", Content: `{"title":"History of Jazz"}`}}},
			},
			serverStatus: http.StatusOK,
			wantContent:  `{"title":"History of Jazz"}`,
		},
		{
			name:           "emptyChoices",
			serverResponse: response{ID: "test-456", Choices: []choice{}},
			serverStatus:   http.StatusOK,
			wantKind:       model.ProviderMalformed,
		},
		{
			name: "blankContent",
			serverResponse: response{
				Choices: []choice{{Message: message{Role: "assistant", Content: "  "}}},
			},
			serverStatus: http.StatusOK,
			wantKind:     model.ProviderMalformed,
		},
		{
			name:           "apiErrorInBody",
			serverResponse: response{Error: &apiError{Message: "rate limit exceeded", Type: "rate_limit"}},
			serverStatus:   http.StatusOK,
			wantKind:       model.ProviderRateLimit,
		},
		{
			name:           "unauthorized",
			serverResponse: response{Error: &apiError{Message: "invalid key", Type: "authentication_error"}},
			serverStatus:   http.StatusUnauthorized,
			wantKind:       model.ProviderAuth,
		},
		{
			name:           "tooManyRequests",
			serverResponse: response{},
			serverStatus:   http.StatusTooManyRequests,
			wantKind:       model.ProviderRateLimit,
		},
		{
			name:           "serverError",
			serverResponse: response{},
			serverStatus:   http.StatusBadGateway,
			wantKind:       model.ProviderTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got request
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("path = %q, want /chat/completions", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.serverStatus)
				_ = json.NewEncoder(w).Encode(tt.serverResponse)
			}))
			defer server.Close()

			client := NewClient(Options{APIKey: "test-key", Model: "deepseek-chat", BaseURL: server.URL})
			content, err := client.GenerateOutline(context.Background(), llm.Request{System: "sys", Prompt: "outline"})

			if got.Model != "deepseek-chat" || len(got.Messages) != 2 || got.ResponseFormat == nil {
				t.Errorf("unexpected request body: %+v", got)
			}

			if tt.wantKind != "" {
				kind, ok := model.ProviderErrorKindOf(err)
				if !ok || kind != tt.wantKind {
					t.Errorf("GenerateOutline() error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateOutline() unexpected error: %v", err)
			}
			if content != tt.wantContent {
				t.Errorf("GenerateOutline() = %q, want %q", content, tt.wantContent)
			}
		})
	}
}

func TestGenerateOutlineTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.GenerateOutline(context.Background(), llm.Request{})

	if kind, ok := model.ProviderErrorKindOf(err); !ok || kind != model.ProviderTimeout {
		t.Errorf("GenerateOutline() error = %v, want timeout", err)
	}
}
