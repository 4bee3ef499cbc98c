package structurer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodeck/internal/llm"
	"autodeck/internal/llm/mock"
	"autodeck/internal/llm/openai"
	"autodeck/internal/model"
	"autodeck/internal/theme"
	"autodeck/pkg/prompts"
)

type genFunc func(ctx context.Context, req llm.Request, out any) error

func (f genFunc) GenerateOutline(ctx context.Context, req llm.Request, out any) error {
	return f(ctx, req, out)
}

func fill(out, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func testPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, MalformedRetries: 2}
}

func newTestStructurer(t *testing.T, gen Generator) *Structurer {
	t.Helper()
	p, err := prompts.Default()
	require.NoError(t, err)
	return New(gen, p, Options{Retries: 1, Parallelism: 4})
}

func mockStructurer(t *testing.T, client *mock.Client) *Structurer {
	return newTestStructurer(t, llm.NewGateway("mock", client, testPolicy(), nil))
}

func minimalist(t *testing.T) theme.Spec {
	t.Helper()
	spec, err := theme.Resolve("minimalist")
	require.NoError(t, err)
	return spec
}

func jazzRequest(n int) model.TopicRequest {
	return model.TopicRequest{Topic: "History of Jazz", Provider: "mock", SlideCount: n}.Normalize()
}

func TestStructureJazzFixture(t *testing.T) {
	s := mockStructurer(t, mock.NewClient())

	outline, err := s.Structure(context.Background(), jazzRequest(3), nil, minimalist(t))
	require.NoError(t, err)

	require.Len(t, outline.Sections, 3)
	for i, section := range outline.Sections {
		assert.Len(t, section.Slides, 1, "section %d", i)
	}
	first := outline.Sections[0].Slides[0]
	assert.Equal(t, model.KindTitle, first.Kind)
	assert.Equal(t, "History of Jazz", first.Title)
	assert.Equal(t, "Introduction to History of Jazz", outline.Sections[1].Slides[0].Title)
	assert.True(t, outline.Sections[2].Slides[0].HasValidChart())
}

func TestStructureSlideCountWithinTolerance(t *testing.T) {
	s := mockStructurer(t, mock.NewClient())
	spec := minimalist(t)

	for n := 1; n <= model.MaxSlideCount; n++ {
		t.Run(fmt.Sprintf("slides%d", n), func(t *testing.T) {
			outline, err := s.Structure(context.Background(), jazzRequest(n), nil, spec)
			require.NoError(t, err)
			got := outline.SlideCount()
			assert.LessOrEqual(t, got-n, SlideTolerance)
			assert.GreaterOrEqual(t, got-n, -SlideTolerance)
		})
	}
}

func TestStructureIsDeterministic(t *testing.T) {
	items := model.ResearchItems{{Source: "wikipedia", Snippet: "Jazz originated in New Orleans.", Citation: 1}}
	spec := minimalist(t)

	a, err := mockStructurer(t, mock.NewClient()).Structure(context.Background(), jazzRequest(8), items, spec)
	require.NoError(t, err)
	b, err := mockStructurer(t, mock.NewClient()).Structure(context.Background(), jazzRequest(8), items, spec)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestStructureMalformedFallsBack(t *testing.T) {
	client := mock.NewClient(mock.WithMalformed())
	s := mockStructurer(t, client)

	outline, err := s.Structure(context.Background(), jazzRequest(5), nil, minimalist(t))
	require.NoError(t, err)

	policy := testPolicy()
	assert.Equal(t, (1+policy.MalformedRetries)*(1+1), client.Calls())
	assert.Equal(t, FallbackOutline("History of Jazz"), outline)
}

func TestStructureRepromptsWithFeedback(t *testing.T) {
	var planPrompts []string
	gen := genFunc(func(_ context.Context, req llm.Request, out any) error {
		if req.Schema.Name == llm.SchemaSection {
			return fill(out, SectionDetail{Slides: []model.Slide{{Kind: model.KindContent, Title: "x"}}})
		}
		planPrompts = append(planPrompts, req.Prompt)
		slides := []PlanSlide{{Title: "Cover", Kind: model.KindTitle}}
		if len(planPrompts) > 1 {
			slides = append(slides, PlanSlide{Title: "Body", Kind: model.KindContent}, PlanSlide{Title: "End", Kind: model.KindContent})
		}
		return fill(out, OutlinePlan{Title: "T", Sections: []PlanSection{{Title: "S", Slides: slides}}})
	})

	outline, err := newTestStructurer(t, gen).Structure(context.Background(), jazzRequest(4), nil, minimalist(t))
	require.NoError(t, err)

	require.Len(t, planPrompts, 2)
	assert.NotContains(t, planPrompts[0], "previous answer was rejected")
	assert.Contains(t, planPrompts[1], "previous answer was rejected")
	assert.Contains(t, planPrompts[1], "1 slides but 4 were requested")
	assert.Equal(t, 3, outline.SlideCount())
}

func TestStructureFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		kind model.ProviderErrorKind
	}{
		{"auth", model.ProviderAuth},
		{"rateLimit", model.ProviderRateLimit},
		{"timeout", model.ProviderTimeout},
		{"rejected", model.ProviderRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			gen := genFunc(func(context.Context, llm.Request, any) error {
				calls++
				return model.NewProviderError("openai", tt.kind, errors.New("nope"))
			})

			_, err := newTestStructurer(t, gen).Structure(context.Background(), jazzRequest(3), nil, minimalist(t))
			kind, ok := model.ProviderErrorKindOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestStructureUnknownModelIsSurfaced(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"The model gpt-9 does not exist","type":"invalid_request_error","code":"model_not_found"}}`))
	}))
	defer server.Close()

	client := openai.NewClient(openai.Options{APIKey: "test-key", Model: "gpt-9", BaseURL: server.URL + "/"})
	s := newTestStructurer(t, llm.NewGateway("openai", client, testPolicy(), nil))

	outline, err := s.Structure(context.Background(), jazzRequest(3), nil, minimalist(t))
	assert.Nil(t, outline)
	kind, ok := model.ProviderErrorKindOf(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, model.ProviderRejected, kind)
	assert.EqualValues(t, 1, calls.Load())
}

func TestStructureSectionTimeoutIsFatal(t *testing.T) {
	plan := OutlinePlan{
		Title: "Deck",
		Sections: []PlanSection{
			{Title: "Intro", Slides: []PlanSlide{{Title: "Deck", Kind: model.KindTitle}}},
			{Title: "Slow", Slides: []PlanSlide{{Title: "One", Kind: model.KindContent}, {Title: "Two", Kind: model.KindContent}}},
		},
	}
	gen := genFunc(func(_ context.Context, req llm.Request, out any) error {
		if req.Schema.Name == llm.SchemaPlan {
			return fill(out, plan)
		}
		if req.Hints.Section == "Slow" {
			return model.NewProviderError("openai", model.ProviderTimeout, errors.New("deadline"))
		}
		return fill(out, SectionDetail{Slides: []model.Slide{{Kind: model.KindTitle, Title: "Deck"}}})
	})

	_, err := newTestStructurer(t, gen).Structure(context.Background(), jazzRequest(3), nil, minimalist(t))
	kind, ok := model.ProviderErrorKindOf(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, model.ProviderTimeout, kind)
}

func TestStructureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := mockStructurer(t, mock.NewClient())
	_, err := s.Structure(ctx, jazzRequest(3), nil, minimalist(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStructureSectionFailureDegrades(t *testing.T) {
	plan := OutlinePlan{
		Title: "Deck",
		Sections: []PlanSection{
			{Title: "Intro", Slides: []PlanSlide{{Title: "Deck", Kind: model.KindTitle}}},
			{Title: "Broken", Slides: []PlanSlide{{Title: "One", Kind: model.KindChart}, {Title: "Two", Kind: model.KindContent}}},
		},
	}

	var mu sync.Mutex
	var sections []string
	gen := genFunc(func(_ context.Context, req llm.Request, out any) error {
		if req.Schema.Name == llm.SchemaPlan {
			return fill(out, plan)
		}
		mu.Lock()
		sections = append(sections, req.Hints.Section)
		mu.Unlock()
		if req.Hints.Section == "Broken" {
			return model.NewProviderError("mock", model.ProviderMalformed, errors.New("bad json"))
		}
		return fill(out, SectionDetail{Slides: []model.Slide{{Kind: model.KindTitle, Title: "Deck", Subtitle: "Sub"}}})
	})

	outline, err := newTestStructurer(t, gen).Structure(context.Background(), jazzRequest(3), nil, minimalist(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Intro", "Broken"}, sections)
	require.Equal(t, 3, outline.SlideCount())

	broken := outline.Sections[1].Slides
	assert.Equal(t, "One", broken[0].Title)
	assert.Equal(t, model.KindContent, broken[0].Kind)
	assert.Len(t, broken[0].Bullets, 1)
	assert.Equal(t, "Two", broken[1].Title)
	assert.Equal(t, "Sub", outline.Sections[0].Slides[0].Subtitle)
}

func TestOutlinePlanCheckCount(t *testing.T) {
	planOf := func(n int) *OutlinePlan {
		slides := make([]PlanSlide, n)
		for i := range slides {
			slides[i] = PlanSlide{Title: fmt.Sprintf("s%d", i), Kind: model.KindContent}
		}
		return &OutlinePlan{Sections: []PlanSection{{Title: "s", Slides: slides}}}
	}

	tests := []struct {
		name      string
		got       int
		requested int
		wantErr   bool
	}{
		{"exact", 10, 10, false},
		{"twoOver", 12, 10, false},
		{"twoUnder", 8, 10, false},
		{"threeOver", 13, 10, true},
		{"threeUnder", 7, 10, true},
		{"singleSlide", 3, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := planOf(tt.got).CheckCount(tt.requested)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestOutlinePlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    OutlinePlan
		wantErr string
	}{
		{"noSections", OutlinePlan{}, "no sections"},
		{"emptySection", OutlinePlan{Sections: []PlanSection{{Title: "a"}}}, "has no slides"},
		{"blankTitle", OutlinePlan{Sections: []PlanSection{{Title: "a", Slides: []PlanSlide{{Title: "  "}}}}}, "empty title"},
		{"valid", OutlinePlan{Sections: []PlanSection{{Title: "a", Slides: []PlanSlide{{Title: "x"}}}}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSanitize(t *testing.T) {
	items := model.ResearchItems{{Citation: 1, Snippet: "a"}, {Citation: 2, Snippet: "b"}}
	outline := &model.Outline{
		Sections: []model.Section{{
			Title: "S",
			Slides: []model.Slide{
				{Kind: model.KindContent, Title: " Opening "},
				{Kind: model.KindChart, Title: "Chart", Chart: &model.ChartSpec{Kind: model.ChartBar, Categories: []string{"a", "b"}, Series: []model.Series{{Values: []float64{1}}}}},
				{Kind: model.KindStatistics, Title: "Stats", Statistics: []model.Statistic{{Value: "1", Label: ""}}},
				{Kind: model.KindCitations, Title: "Sources", Citations: []int{2, 7, 2, 1}},
				{Kind: model.KindStatistics, Title: "Many", Statistics: []model.Statistic{
					{Value: "1", Label: "a"}, {Value: "2", Label: "b"}, {Value: "3", Label: "c"},
					{Value: "4", Label: "d"}, {Value: "5", Label: "e"},
				}},
			},
		}},
	}

	sanitize(outline, "Topic", items)
	slides := outline.Sections[0].Slides

	assert.Equal(t, "Topic", outline.Title)
	assert.Equal(t, model.KindTitle, slides[0].Kind)
	assert.Equal(t, "Opening", slides[0].Title)
	assert.Equal(t, "Topic: Topic", slides[0].Subtitle)

	assert.Nil(t, slides[1].Chart)
	assert.Equal(t, model.KindContent, slides[1].Kind)

	assert.Nil(t, slides[2].Statistics)
	assert.Equal(t, model.KindContent, slides[2].Kind)

	assert.Equal(t, model.KindContent, slides[3].Kind)
	assert.Equal(t, []int{2, 1}, slides[3].Citations)

	assert.Len(t, slides[4].Statistics, model.MaxStatistics)
	assert.Len(t, outline.Sections[0].Slides, 5)
}

func TestFallbackOutline(t *testing.T) {
	o := FallbackOutline("Quantum Computing")

	require.Len(t, o.Sections, 2)
	assert.Equal(t, 2, o.SlideCount())

	title := o.Sections[0].Slides[0]
	assert.Equal(t, model.KindTitle, title.Kind)
	assert.Equal(t, "Topic: Quantum Computing", title.Subtitle)

	overview := o.Sections[1].Slides[0]
	assert.Equal(t, model.KindContent, overview.Kind)
	assert.Equal(t, "Overview of Quantum Computing", overview.Title)
	assert.NotEmpty(t, overview.Bullets)
	for _, b := range overview.Bullets {
		assert.True(t, strings.Contains(b.Text, "Quantum Computing"))
	}
}
