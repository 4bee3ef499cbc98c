package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

const providerName = "openai"

var _ llm.Client = (*Client)(nil)

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

type Client struct {
	client    openai.Client
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

	return &Client{
		client:    openai.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: int64(opts.MaxTokens),
	}
}

func (c *Client) GenerateOutline(ctx context.Context, req llm.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("no response"))
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("empty response"))
	}

	return content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, llm.ClassifyStatus(apiErr.StatusCode), fmt.Errorf("generate: %w", err))
	}
	return llm.Classify(providerName, fmt.Errorf("generate: %w", err))
}
