// Package mock is a deterministic, offline provider used for tests and demos.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

var _ llm.Client = (*Client)(nil)

const maxSections = 3

type template struct {
	title string
	kind  model.SlideKind
}

var templates = []template{
	{"Introduction to %s", model.KindContent},
	{"Economic Impact of %s", model.KindChart},
	{"%s by the Numbers", model.KindStatistics},
	{"Core Concepts of %s", model.KindContent},
	{"Case Study: %s", model.KindContent},
	{"Predictions for %s", model.KindContent},
	{"Strategic Roadmap", model.KindContent},
}

var sectionTitles = []string{
	"Fundamentals of %s",
	"Advanced Applications: %s",
	"The Future of %s",
}

var bulletTemplates = []string{
	"Key innovation and strategic importance of %s",
	"Global impact and future trends in %s",
	"Practical applications and case studies of %s",
}

type Option func(*Client)

// WithMalformed makes every response unparseable.
func WithMalformed() Option {
	return func(c *Client) { c.malformed = true }
}

type Client struct {
	malformed bool
	calls     atomic.Int64
}

func NewClient(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calls reports how many requests the client has answered.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

func (c *Client) GenerateOutline(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.calls.Add(1)

	if c.malformed {
		return `{"title": "unterminated`, nil
	}

	topic := req.Hints.Topic
	if topic == "" {
		topic = "the topic"
	}
	n := max(req.Hints.SlideCount, 1)

	var payload any
	switch req.Schema.Name {
	case llm.SchemaSection:
		payload = sectionResponse{Slides: detailSlides(topic, n, req.Hints.SlideTitles)}
	default:
		payload = plan(topic, n)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal mock response: %w", err)
	}
	return string(data), nil
}

type planSlide struct {
	Title string          `json:"title"`
	Kind  model.SlideKind `json:"kind"`
}

type planSection struct {
	Title  string      `json:"title"`
	Slides []planSlide `json:"slides"`
}

type planResponse struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Sections []planSection `json:"sections"`
}

type sectionResponse struct {
	Slides []model.Slide `json:"slides"`
}

func plan(topic string, n int) planResponse {
	slides := planSlides(topic, n)
	k := min(maxSections, n)

	p := planResponse{
		Title:    topic,
		Subtitle: "An overview of " + topic,
	}

	start := 0
	for i := range k {
		size := n / k
		if i < n%k {
			size++
		}
		p.Sections = append(p.Sections, planSection{
			Title:  fmt.Sprintf(sectionTitles[i], topic),
			Slides: slides[start : start+size],
		})
		start += size
	}
	return p
}

func planSlides(topic string, n int) []planSlide {
	slides := []planSlide{{Title: topic, Kind: model.KindTitle}}
	for i := 1; i < n; i++ {
		t := templates[(i-1)%len(templates)]
		title := t.title
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(title, topic)
		}
		slides = append(slides, planSlide{Title: title, Kind: t.kind})
	}
	return slides
}

func detailSlides(topic string, n int, titles []string) []model.Slide {
	kinds := make(map[string]model.SlideKind)
	for _, s := range planSlides(topic, n) {
		kinds[s.Title] = s.Kind
	}

	out := make([]model.Slide, 0, len(titles))
	for _, title := range titles {
		kind, ok := kinds[title]
		if !ok {
			kind = model.KindContent
		}
		out = append(out, detail(topic, title, kind))
	}
	return out
}

func detail(topic, title string, kind model.SlideKind) model.Slide {
	if kind == model.KindTitle {
		return model.Slide{
			Kind:     model.KindTitle,
			Title:    title,
			Subtitle: "An overview of " + topic,
			Notes:    fmt.Sprintf("Welcome the audience and introduce %s.", topic),
		}
	}

	slide := model.Slide{
		Kind:      kind,
		Title:     title,
		Bullets:   bullets(topic),
		Notes:     fmt.Sprintf("Walk through %s and connect it back to %s.", title, topic),
		Citations: []int{1},
	}

	switch kind {
	case model.KindContent:
		slide.ImageQuery = "professional artistic image of " + topic
	case model.KindChart:
		slide.Chart = &model.ChartSpec{
			Kind:       model.ChartBar,
			Title:      "Market size (USD billions)",
			Categories: []string{"2021", "2022", "2023", "2024"},
			Series: []model.Series{
				{Name: topic, Values: []float64{12.5, 15.1, 18.4, 22.0}},
			},
		}
	case model.KindStatistics:
		slide.Statistics = []model.Statistic{
			{Value: "85%", Label: "Adoption among industry leaders"},
			{Value: "$4.2B", Label: "Annual investment"},
			{Value: "120+", Label: "Countries engaged"},
		}
	}
	return slide
}

func bullets(topic string) []model.Bullet {
	out := make([]model.Bullet, 0, len(bulletTemplates))
	for _, b := range bulletTemplates {
		out = append(out, model.Bullet{Text: fmt.Sprintf(b, topic)})
	}
	return out
}
