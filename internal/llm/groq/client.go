package groq

import (
	"context"
	"errors"
	"fmt"

	"github.com/conneroisu/groq-go"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

const providerName = "groq"

var _ llm.Client = (*Client)(nil)

type Client struct {
	client *groq.Client
	model  groq.ChatModel
}

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

func NewClient(opts Options) (*Client, error) {
	var client *groq.Client
	var err error
	if opts.BaseURL != "" {
		client, err = groq.NewClient(opts.APIKey, groq.WithBaseURL(opts.BaseURL))
	} else {
		client, err = groq.NewClient(opts.APIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		client: client,
		model:  groq.ChatModel(opts.Model),
	}, nil
}

func (c *Client) GenerateOutline(ctx context.Context, req llm.Request) (string, error) {
	chatReq := groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: req.System},
			{Role: groq.RoleUser, Content: req.Prompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{
			Type: "json_object",
		},
	}
	resp, err := c.client.ChatCompletion(ctx, chatReq)
	if err != nil {
		return "", llm.Classify(providerName, fmt.Errorf("generate: %w", err))
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
