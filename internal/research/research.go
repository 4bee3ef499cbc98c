// Package research gathers, deduplicates and numbers background snippets for
// a topic from several independent sources.
package research

import (
	"context"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"autodeck/internal/metrics"
	"autodeck/internal/model"
)

const (
	MaxSnippetRunes  = 500
	defaultMaxItems  = 8
	defaultMaxChars  = 12000
	defaultPerSource = 5
	defaultTimeout   = 15 * time.Second
)

type Source interface {
	Name() string
	Search(ctx context.Context, query, language string, limit int) ([]model.ResearchItem, error)
}

type Config struct {
	MaxItems  int
	MaxChars  int
	PerSource int
	Timeout   time.Duration
}

type Aggregator struct {
	sources []Source
	cfg     Config
}

func NewAggregator(cfg Config, sources ...Source) *Aggregator {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if cfg.PerSource <= 0 {
		cfg.PerSource = defaultPerSource
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Aggregator{sources: sources, cfg: cfg}
}

// Gather queries every source concurrently and returns at most MaxItems
// deduplicated items numbered 1..n. Source failures only shrink the result.
func (a *Aggregator) Gather(ctx context.Context, topic, language string) model.ResearchItems {
	if len(a.sources) == 0 {
		return nil
	}

	slog.Info("Gathering research", "topic", topic, "sources", len(a.sources))
	start := time.Now()

	results := make([][]model.ResearchItem, len(a.sources))
	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.query(ctx, src, topic, language)
			return nil
		})
	}
	_ = g.Wait()

	items := a.merge(results)
	for _, it := range items {
		metrics.RecordResearchItem(it.Source)
	}
	slog.Info("Research gathered", "items", len(items), "duration", time.Since(start).Round(time.Millisecond))
	return items
}

func (a *Aggregator) query(ctx context.Context, src Source, topic, language string) []model.ResearchItem {
	if ctx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	items, err := src.Search(ctx, topic, language, a.cfg.PerSource)
	if err != nil {
		slog.Warn("Research source failed", "error", &model.ResearchError{Source: src.Name(), Err: err})
		return nil
	}
	if len(items) == 0 {
		slog.Debug("Research source returned nothing", "source", src.Name())
	}
	for i := range items {
		if items[i].Source == "" {
			items[i].Source = src.Name()
		}
	}
	return items
}

type ranked struct {
	item  model.ResearchItem
	order int
}

func (a *Aggregator) merge(results [][]model.ResearchItem) model.ResearchItems {
	seen := make(map[string]bool)
	var candidates []ranked

	for _, items := range results {
		for _, it := range items {
			it.Snippet = truncateRunes(it.Snippet, MaxSnippetRunes)
			key := normalize(it.Snippet)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, ranked{item: it, order: len(candidates)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].item.Score > candidates[j].item.Score
	})
	if len(candidates) > a.cfg.MaxItems {
		candidates = candidates[:a.cfg.MaxItems]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].order < candidates[j].order
	})

	out := make(model.ResearchItems, 0, len(candidates))
	remaining := a.cfg.MaxChars
	for _, c := range candidates {
		if remaining <= 0 {
			break
		}
		it := c.item
		if n := utf8.RuneCountInString(it.Snippet); n > remaining {
			it.Snippet = truncateRunes(it.Snippet, remaining)
		}
		remaining -= utf8.RuneCountInString(it.Snippet)
		it.Citation = len(out) + 1
		out = append(out, it)
	}
	return out
}

// RankScore decays a source's base score with the result rank.
func RankScore(base float64, rank int) float64 {
	s := base / float64(1+rank)
	if s < 0 {
		return 0
	}
	return min(s, 1)
}
