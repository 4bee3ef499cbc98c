package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodeck/internal/model"
)

type fakeSource struct {
	name  string
	items []model.ResearchItem
	err   error
	delay time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, _, _ string, _ int) ([]model.ResearchItem, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.items, f.err
}

func TestGatherDedupesAndNumbers(t *testing.T) {
	wiki := &fakeSource{name: "wikipedia", items: []model.ResearchItem{
		{Snippet: "Jazz originated in New Orleans.", Score: 1.0},
		{Snippet: "Swing dominated the 1930s.", Score: 0.5},
	}}
	ddg := &fakeSource{name: "duckduckgo", items: []model.ResearchItem{
		{Snippet: "  JAZZ originated in   New Orleans ", Score: 0.9},
		{Snippet: "Bebop emerged in the 1940s.", Score: 0.8},
	}}

	items := NewAggregator(Config{}, wiki, ddg).Gather(context.Background(), "jazz", "English")
	require.Len(t, items, 3)

	assert.Equal(t, "Jazz originated in New Orleans.", items[0].Snippet)
	assert.Equal(t, "wikipedia", items[0].Source)
	assert.Equal(t, "Swing dominated the 1930s.", items[1].Snippet)
	assert.Equal(t, "Bebop emerged in the 1940s.", items[2].Snippet)
	for i, it := range items {
		assert.Equal(t, i+1, it.Citation)
	}
}

func TestGatherKeepsTopKInFirstSeenOrder(t *testing.T) {
	src := &fakeSource{name: "s", items: []model.ResearchItem{
		{Snippet: "low one", Score: 0.1},
		{Snippet: "high one", Score: 0.9},
		{Snippet: "mid one", Score: 0.5},
		{Snippet: "high two", Score: 0.8},
	}}

	items := NewAggregator(Config{MaxItems: 2}, src).Gather(context.Background(), "t", "en")
	require.Len(t, items, 2)
	assert.Equal(t, "high one", items[0].Snippet)
	assert.Equal(t, "high two", items[1].Snippet)
	assert.Equal(t, []int{1, 2}, []int{items[0].Citation, items[1].Citation})
}

func TestGatherSurvivesFailingSources(t *testing.T) {
	bad := &fakeSource{name: "bad", err: errors.New("boom")}
	slow := &fakeSource{name: "slow", delay: time.Second, items: []model.ResearchItem{{Snippet: "late"}}}
	good := &fakeSource{name: "good", items: []model.ResearchItem{{Snippet: "on time", Score: 0.3}}}

	items := NewAggregator(Config{Timeout: 20 * time.Millisecond}, bad, slow, good).Gather(context.Background(), "t", "en")
	require.Len(t, items, 1)
	assert.Equal(t, "good", items[0].Source)
}

func TestGatherAllSourcesFail(t *testing.T) {
	agg := NewAggregator(Config{}, &fakeSource{name: "a", err: errors.New("x")}, &fakeSource{name: "b"})
	assert.Empty(t, agg.Gather(context.Background(), "t", "en"))
	assert.Empty(t, NewAggregator(Config{}).Gather(context.Background(), "t", "en"))
}

func TestGatherBoundsSnippetVolume(t *testing.T) {
	long := strings.Repeat("é", 700)
	src := &fakeSource{name: "s", items: []model.ResearchItem{
		{Snippet: long, Score: 1},
		{Snippet: strings.Repeat("b", 400), Score: 1},
		{Snippet: strings.Repeat("c", 400), Score: 1},
	}}

	items := NewAggregator(Config{MaxChars: 800}, src).Gather(context.Background(), "t", "en")
	require.Len(t, items, 2)
	assert.Equal(t, MaxSnippetRunes, utf8.RuneCountInString(items[0].Snippet))
	assert.Equal(t, 300, utf8.RuneCountInString(items[1].Snippet))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Jazz  Music", "jazz music"},
		{"ＪＡＺＺ", "jazz"},
		{"\"Jazz.\"", "jazz"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.Equal(t, normalize(tt.b), normalize(tt.a))
		})
	}
}

func TestRankScore(t *testing.T) {
	assert.Equal(t, 1.0, RankScore(1, 0))
	assert.Equal(t, 0.5, RankScore(1, 1))
	assert.Equal(t, 1.0, RankScore(3, 0))
	assert.Equal(t, 0.0, RankScore(-1, 0))
}
