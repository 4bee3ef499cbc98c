package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

const providerName = "google"

var _ llm.Client = (*Client)(nil)

var bulletSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"text": {Type: genai.TypeString},
		"children": {Type: genai.TypeArray, Items: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{"text": {Type: genai.TypeString}},
		}},
	},
	Required: []string{"text"},
}

var chartSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"kind":       {Type: genai.TypeString, Enum: []string{"bar", "column", "line", "pie"}},
		"title":      {Type: genai.TypeString},
		"categories": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"series": {Type: genai.TypeArray, Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":   {Type: genai.TypeString},
				"values": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}},
			},
			Required: []string{"name", "values"},
		}},
	},
	Required: []string{"kind", "categories", "series"},
}

var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":    {Type: genai.TypeString},
		"subtitle": {Type: genai.TypeString},
		"sections": {Type: genai.TypeArray, Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {Type: genai.TypeString},
				"slides": {Type: genai.TypeArray, Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title": {Type: genai.TypeString, Description: "Slide title"},
						"kind":  {Type: genai.TypeString, Enum: []string{"title", "content", "image", "chart", "statistics"}},
					},
					Required: []string{"title", "kind"},
				}},
			},
			Required: []string{"title", "slides"},
		}},
	},
	Required: []string{"title", "sections"},
}

var sectionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"slides": {Type: genai.TypeArray, Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"kind":        {Type: genai.TypeString},
				"title":       {Type: genai.TypeString},
				"subtitle":    {Type: genai.TypeString},
				"bullets":     {Type: genai.TypeArray, Items: bulletSchema},
				"chart":       chartSchema,
				"image_query": {Type: genai.TypeString, Description: "Specific image search term"},
				"notes":       {Type: genai.TypeString},
				"citations":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeInteger}},
				"statistics": {Type: genai.TypeArray, Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"value": {Type: genai.TypeString},
						"label": {Type: genai.TypeString},
					},
					Required: []string{"value", "label"},
				}},
			},
			Required: []string{"title", "kind"},
		}},
	},
	Required: []string{"slides"},
}

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

type Client struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		client:    client,
		model:     opts.Model,
		maxTokens: int32(opts.MaxTokens),
	}, nil
}

func (c *Client) GenerateOutline(ctx context.Context, req llm.Request) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   schemaFor(req.Schema.Name),
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("no response"))
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", model.NewProviderError(providerName, model.ProviderMalformed, errors.New("empty response"))
	}
	return text, nil
}

func schemaFor(name string) *genai.Schema {
	switch name {
	case llm.SchemaPlan:
		return planSchema
	case llm.SchemaSection:
		return sectionSchema
	}
	return nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, llm.ClassifyStatus(apiErr.Code), fmt.Errorf("generate: %w", err))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return model.NewProviderError(providerName, llm.ClassifyStatus(apiErrPtr.Code), fmt.Errorf("generate: %w", err))
	}
	return llm.Classify(providerName, fmt.Errorf("generate: %w", err))
}
