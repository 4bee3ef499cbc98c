// Package deepseek talks to the OpenAI-compatible DeepSeek chat endpoint.
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

const (
	providerName   = "deepseek"
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultTimeout = 120 * time.Second
	roleSystem     = "system"
	roleUser       = "user"
)

var _ llm.Client = (*Client)(nil)

type Client struct {
	http      *resty.Client
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
}

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	BaseURL   string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type request struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type response struct {
	ID      string    `json:"id"`
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	return &Client{
		http:      resty.New().SetTimeout(opts.Timeout),
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
	}
}

func (c *Client) GenerateOutline(ctx context.Context, req llm.Request) (string, error) {
	body := request{
		Model: c.model,
		Messages: []message{
			{Role: roleSystem, Content: req.System},
			{Role: roleUser, Content: req.Prompt},
		},
		MaxTokens:      c.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var out response
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(body).
		SetResult(&out).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", llm.Classify(providerName, fmt.Errorf("send request: %w", err))
	}
	if res.IsError() {
		return "", model.NewProviderError(providerName, llm.ClassifyStatus(res.StatusCode()),
			fmt.Errorf("api error %d: %s", res.StatusCode(), strings.TrimSpace(res.String())))
	}

	return parseResponse(&out)
}

func parseResponse(resp *response) (string, error) {
	if resp.Error != nil {
		return "", llm.Classify(providerName, fmt.Errorf("deepseek error: %s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("no response choices"))
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("empty response"))
	}
	return content, nil
}
