package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

func message(text string) string {
	body := map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-test",
		"stop_reason": "end_turn",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestGenerateOutline(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		wantKind model.ProviderErrorKind
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   message(`{"title":"Jazz"}`),
			want:   `{"title":"Jazz"}`,
		},
		{
			name:     "emptyText",
			status:   http.StatusOK,
			body:     message("   "),
			wantKind: model.ProviderMalformed,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"type":"error","error":{"type":"permission_error","message":"denied"}}`,
			wantKind: model.ProviderAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Options{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL})
			got, err := client.GenerateOutline(context.Background(), llm.Request{System: "sys", Prompt: "outline jazz"})

			if tt.wantKind != "" {
				kind, ok := model.ProviderErrorKindOf(err)
				if !ok || kind != tt.wantKind {
					t.Fatalf("error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateOutline() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("GenerateOutline() = %q, want %q", got, tt.want)
			}
			if gotBody["model"] != "claude-test" {
				t.Errorf("model = %v, want claude-test", gotBody["model"])
			}
			if gotBody["max_tokens"] != float64(defaultMaxTokens) {
				t.Errorf("max_tokens = %v, want %d", gotBody["max_tokens"], defaultMaxTokens)
			}
		})
	}
}
