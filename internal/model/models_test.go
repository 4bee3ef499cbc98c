package model

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestChartSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		chart   *ChartSpec
		wantErr bool
	}{
		{
			name: "validBar",
			chart: &ChartSpec{
				Kind:       ChartBar,
				Categories: []string{"a", "b"},
				Series:     []Series{{Name: "s", Values: []float64{1, 2}}},
			},
		},
		{
			name:    "nilChart",
			chart:   nil,
			wantErr: true,
		},
		{
			name: "unknownKind",
			chart: &ChartSpec{
				Kind:       "radar",
				Categories: []string{"a"},
				Series:     []Series{{Values: []float64{1}}},
			},
			wantErr: true,
		},
		{
			name: "lengthMismatch",
			chart: &ChartSpec{
				Kind:       ChartLine,
				Categories: []string{"a", "b", "c"},
				Series:     []Series{{Values: []float64{1, 2}}},
			},
			wantErr: true,
		},
		{
			name: "noSeries",
			chart: &ChartSpec{
				Kind:       ChartColumn,
				Categories: []string{"a"},
			},
			wantErr: true,
		},
		{
			name: "nonFinite",
			chart: &ChartSpec{
				Kind:       ChartBar,
				Categories: []string{"a"},
				Series:     []Series{{Values: []float64{math.NaN()}}},
			},
			wantErr: true,
		},
		{
			name: "pieNegative",
			chart: &ChartSpec{
				Kind:       ChartPie,
				Categories: []string{"a", "b"},
				Series:     []Series{{Values: []float64{3, -1}}},
			},
			wantErr: true,
		},
		{
			name: "pieTwoSeries",
			chart: &ChartSpec{
				Kind:       ChartPie,
				Categories: []string{"a"},
				Series:     []Series{{Values: []float64{1}}, {Values: []float64{2}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chart.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStatistics(t *testing.T) {
	if err := ValidateStatistics(nil); err == nil {
		t.Error("ValidateStatistics(nil) should fail")
	}
	if err := ValidateStatistics([]Statistic{{Value: "42%", Label: ""}}); err == nil {
		t.Error("ValidateStatistics() should fail on empty label")
	}
	if err := ValidateStatistics([]Statistic{{Value: "42%", Label: "growth"}}); err != nil {
		t.Errorf("ValidateStatistics() error = %v", err)
	}
}

func TestOutlineSlides(t *testing.T) {
	o := &Outline{Sections: []Section{
		{Title: "one", Slides: []Slide{{Title: "a"}, {Title: "b"}}},
		{Title: "two", Slides: []Slide{{Title: "c"}}},
	}}

	if o.SlideCount() != 3 {
		t.Fatalf("SlideCount() = %d, want 3", o.SlideCount())
	}

	flat := o.Slides()
	want := []struct {
		title   string
		section int
	}{{"a", 0}, {"b", 0}, {"c", 1}}
	for i, w := range want {
		if flat[i].Index != i || flat[i].Slide.Title != w.title || flat[i].Section != w.section {
			t.Errorf("Slides()[%d] = %+v, want title %q section %d", i, flat[i], w.title, w.section)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	base := errors.New("boom")

	wrapped := fmt.Errorf("generate: %w", NewProviderError("openai", ProviderAuth, base))
	kind, ok := ProviderErrorKindOf(wrapped)
	if !ok || kind != ProviderAuth {
		t.Errorf("ProviderErrorKindOf() = %v, %v, want auth", kind, ok)
	}
	if !errors.Is(wrapped, base) {
		t.Error("ProviderError should unwrap to its cause")
	}
	if ProviderAuth.Retryable() || ProviderMalformed.Retryable() {
		t.Error("auth and malformed must not be backoff-retryable")
	}
	if !ProviderRateLimit.Retryable() || !ProviderTimeout.Retryable() {
		t.Error("rate limit and timeout must be backoff-retryable")
	}

	if !IsConfigError(fmt.Errorf("x: %w", NewConfigError("topic", "must not be empty"))) {
		t.Error("IsConfigError() = false for wrapped ConfigError")
	}
	if !IsRenderError(&RenderError{Op: "write", Err: base}) {
		t.Error("IsRenderError() = false")
	}
	if IsConfigError(base) {
		t.Error("IsConfigError() = true for plain error")
	}
}

func TestResearchItemLabel(t *testing.T) {
	tests := []struct {
		name string
		item ResearchItem
		want string
	}{
		{"titleAndURL", ResearchItem{Title: "Jazz", URL: "https://x", Source: "wikipedia"}, "Jazz (https://x)"},
		{"urlOnly", ResearchItem{URL: "https://x"}, "https://x"},
		{"titleOnly", ResearchItem{Title: "Jazz", Source: "duckduckgo"}, "Jazz, duckduckgo"},
		{"sourceOnly", ResearchItem{Source: "wikipedia"}, "wikipedia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTopicRequestNormalize(t *testing.T) {
	req := TopicRequest{Topic: "  History of Jazz ", Style: " Ocean ", Provider: "MOCK"}
	got := req.Normalize()

	if got.Topic != "History of Jazz" {
		t.Errorf("Topic = %q", got.Topic)
	}
	if got.Language != DefaultLanguage || got.SlideCount != DefaultSlideCount {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.Style != "ocean" || got.Provider != "mock" {
		t.Errorf("Style/Provider = %q/%q", got.Style, got.Provider)
	}
	if req.Topic != "  History of Jazz " {
		t.Error("Normalize() mutated the receiver")
	}
}

func TestResearchItemsSummary(t *testing.T) {
	items := ResearchItems{
		{Source: "wikipedia", Snippet: "Jazz began in New Orleans.", Citation: 1},
		{Source: "duckduckgo", Snippet: "Swing dominated the 1930s.", Citation: 2},
	}
	want := "[1] Jazz began in New Orleans. (wikipedia)\n[2] Swing dominated the 1930s. (duckduckgo)"
	if got := items.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if got := items.ByCitation()[2].Source; got != "duckduckgo" {
		t.Errorf("ByCitation()[2].Source = %q", got)
	}
	if ResearchItems(nil).Summary() != "" {
		t.Error("Summary() of no items should be empty")
	}
}
