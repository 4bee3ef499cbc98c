package model

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultLanguage   = "English"
	DefaultSlideCount = 10
	MaxSlideCount     = 30
	DefaultStyle      = "minimalist"
	DefaultProvider   = "openai"
	MaxStatistics     = 4
)

// TopicRequest is the input of a single generation run. It is never mutated
// once generation starts.
type TopicRequest struct {
	Topic      string `validate:"required"`
	Language   string `validate:"required"`
	SlideCount int    `validate:"gte=1,lte=30"`
	Style      string `validate:"required"`
	Provider   string `validate:"required"`
	Model      string
	OutputPath string
}

// Normalize returns a copy with whitespace trimmed and defaults applied.
func (r TopicRequest) Normalize() TopicRequest {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Language = strings.TrimSpace(r.Language)
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	if r.SlideCount == 0 {
		r.SlideCount = DefaultSlideCount
	}
	r.Style = strings.ToLower(strings.TrimSpace(r.Style))
	if r.Style == "" {
		r.Style = DefaultStyle
	}
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	if r.Provider == "" {
		r.Provider = DefaultProvider
	}
	r.Model = strings.TrimSpace(r.Model)
	r.OutputPath = strings.TrimSpace(r.OutputPath)
	return r
}

type ResearchItem struct {
	Source   string  `json:"source"`
	Title    string  `json:"title,omitempty"`
	URL      string  `json:"url,omitempty"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
	Citation int     `json:"citation"`
}

// Label is the human readable reference line used on the References slide.
func (r ResearchItem) Label() string {
	switch {
	case r.Title != "" && r.URL != "":
		return fmt.Sprintf("%s (%s)", r.Title, r.URL)
	case r.URL != "":
		return r.URL
	case r.Title != "":
		return fmt.Sprintf("%s, %s", r.Title, r.Source)
	default:
		return r.Source
	}
}

type ResearchItems []ResearchItem

// Summary renders one "[n] snippet (source)" line per item for prompts.
func (items ResearchItems) Summary() string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s (%s)", it.Citation, it.Snippet, it.Source)
	}
	return b.String()
}

// ByCitation indexes items by their citation number.
func (items ResearchItems) ByCitation() map[int]ResearchItem {
	out := make(map[int]ResearchItem, len(items))
	for _, it := range items {
		out[it.Citation] = it
	}
	return out
}

type SlideKind string

const (
	KindTitle      SlideKind = "title"
	KindContent    SlideKind = "content"
	KindImage      SlideKind = "image"
	KindChart      SlideKind = "chart"
	KindStatistics SlideKind = "statistics"
	KindCitations  SlideKind = "citation-list"
)

func (k SlideKind) Valid() bool {
	switch k {
	case KindTitle, KindContent, KindImage, KindChart, KindStatistics, KindCitations:
		return true
	}
	return false
}

type Bullet struct {
	Text     string   `json:"text"`
	Children []Bullet `json:"children,omitempty"`
}

type ChartKind string

const (
	ChartBar    ChartKind = "bar"
	ChartColumn ChartKind = "column"
	ChartLine   ChartKind = "line"
	ChartPie    ChartKind = "pie"
)

type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type ChartSpec struct {
	Kind       ChartKind `json:"kind" jsonschema:"enum=bar,enum=column,enum=line,enum=pie"`
	Title      string    `json:"title,omitempty"`
	Categories []string  `json:"categories"`
	Series     []Series  `json:"series"`
}

// Validate checks the chart against its schema: a known kind, at least one
// category and every series as long as the category list.
func (c *ChartSpec) Validate() error {
	if c == nil {
		return fmt.Errorf("chart is nil")
	}
	switch c.Kind {
	case ChartBar, ChartColumn, ChartLine, ChartPie:
	default:
		return fmt.Errorf("unknown chart kind %q", c.Kind)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("chart has no categories")
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("chart has no series")
	}
	for i, s := range c.Series {
		if len(s.Values) != len(c.Categories) {
			return fmt.Errorf("series %d has %d values for %d categories", i, len(s.Values), len(c.Categories))
		}
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("series %d has a non-finite value", i)
			}
			if c.Kind == ChartPie && v < 0 {
				return fmt.Errorf("pie chart has a negative value")
			}
		}
	}
	if c.Kind == ChartPie && len(c.Series) != 1 {
		return fmt.Errorf("pie chart needs exactly one series")
	}
	return nil
}

type Statistic struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func ValidateStatistics(stats []Statistic) error {
	if len(stats) == 0 {
		return fmt.Errorf("no statistics")
	}
	for i, s := range stats {
		if strings.TrimSpace(s.Value) == "" || strings.TrimSpace(s.Label) == "" {
			return fmt.Errorf("statistic %d is missing a value or label", i)
		}
	}
	return nil
}

type Slide struct {
	Kind       SlideKind   `json:"kind"`
	Title      string      `json:"title"`
	Subtitle   string      `json:"subtitle,omitempty"`
	Bullets    []Bullet    `json:"bullets,omitempty"`
	Chart      *ChartSpec  `json:"chart,omitempty"`
	Statistics []Statistic `json:"statistics,omitempty"`
	ImageQuery string      `json:"image_query,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Citations  []int       `json:"citations,omitempty"`
}

func (s Slide) HasValidChart() bool {
	return s.Chart != nil && s.Chart.Validate() == nil
}

func (s Slide) HasValidStatistics() bool {
	return ValidateStatistics(s.Statistics) == nil
}

type Section struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

type Outline struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	Sections []Section `json:"sections"`
}

func (o *Outline) SlideCount() int {
	n := 0
	for _, s := range o.Sections {
		n += len(s.Slides)
	}
	return n
}

// PositionedSlide is a slide together with its place in the outline.
type PositionedSlide struct {
	Index   int
	Section int
	Slide   Slide
}

// Slides flattens the outline in order.
func (o *Outline) Slides() []PositionedSlide {
	out := make([]PositionedSlide, 0, o.SlideCount())
	for si, section := range o.Sections {
		for _, slide := range section.Slides {
			out = append(out, PositionedSlide{Index: len(out), Section: si, Slide: slide})
		}
	}
	return out
}

// Layout is the concrete visual form chosen for a rendered slide.
type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutContent    Layout = "content"
	LayoutImage      Layout = "image"
	LayoutChart      Layout = "chart"
	LayoutStatistics Layout = "statistics"
	LayoutCitations  Layout = "citation-list"
)

// Layouts lists every layout a theme must carry a rule for.
var Layouts = []Layout{LayoutTitle, LayoutContent, LayoutImage, LayoutChart, LayoutStatistics, LayoutCitations}

type Asset struct {
	Query string
	Data  []byte
	MIME  string
}
