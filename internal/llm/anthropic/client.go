package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

var _ llm.Client = (*Client)(nil)

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewClient(opts Options) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    anthropic.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: maxTokens,
	}
}

func (c *Client) GenerateOutline(ctx context.Context, req llm.Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("empty response"))
	}
	return content, nil
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, llm.ClassifyStatus(apiErr.StatusCode), fmt.Errorf("generate: %w", err))
	}
	return llm.Classify(providerName, fmt.Errorf("generate: %w", err))
}
