// Package render lays an outline out on a theme and serializes the result.
//
// Every outline slide goes through an ordered chain of layout strategies:
// chart, image, statistics and finally plain content, which always succeeds.
// The image layout is reserved for image slides; content slides keep their
// bullets and show a resolved picture at the side.
// A failed strategy has no side effects, so falling back changes only the
// visual form of a slide and never the slide count.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"autodeck/internal/assets"
	"autodeck/internal/metrics"
	"autodeck/internal/model"
	"autodeck/internal/theme"
)

const (
	defaultParallelism = 4
	referencesTitle    = "References"
)

type layoutStrategy struct {
	layout  model.Layout
	attempt func(s model.PositionedSlide, asset *model.Asset) (RenderedSlide, bool)
}

var chain = []layoutStrategy{
	{model.LayoutChart, func(s model.PositionedSlide, _ *model.Asset) (RenderedSlide, bool) {
		if !s.Slide.HasValidChart() {
			return RenderedSlide{}, false
		}
		return rendered(s, model.LayoutChart), true
	}},
	{model.LayoutImage, func(s model.PositionedSlide, asset *model.Asset) (RenderedSlide, bool) {
		if s.Slide.Kind != model.KindImage || asset == nil {
			return RenderedSlide{}, false
		}
		rs := rendered(s, model.LayoutImage)
		rs.Image = asset
		return rs, true
	}},
	{model.LayoutStatistics, func(s model.PositionedSlide, _ *model.Asset) (RenderedSlide, bool) {
		if !s.Slide.HasValidStatistics() {
			return RenderedSlide{}, false
		}
		rs := rendered(s, model.LayoutStatistics)
		if len(rs.Slide.Statistics) > model.MaxStatistics {
			rs.Slide.Statistics = rs.Slide.Statistics[:model.MaxStatistics]
		}
		return rs, true
	}},
	{model.LayoutContent, func(s model.PositionedSlide, asset *model.Asset) (RenderedSlide, bool) {
		rs := rendered(s, model.LayoutContent)
		rs.Slide.Chart = nil
		rs.Slide.Statistics = nil
		rs.Image = asset
		return rs, true
	}},
}

func rendered(s model.PositionedSlide, layout model.Layout) RenderedSlide {
	return RenderedSlide{Index: s.Index, Section: s.Section, Layout: layout, Slide: s.Slide}
}

type Renderer struct {
	parallelism int
}

func NewRenderer(parallelism int) *Renderer {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Renderer{parallelism: parallelism}
}

// Render lays out every slide of outline on spec. resolver may be nil, in
// which case no slide gets the image layout.
func (r *Renderer) Render(ctx context.Context, outline *model.Outline, spec theme.Spec, resolver assets.Resolver, research model.ResearchItems) (*RenderedDeck, error) {
	if outline == nil || outline.SlideCount() == 0 {
		return nil, &model.RenderError{Op: "layout", Err: fmt.Errorf("outline has no slides")}
	}

	slides := outline.Slides()
	images := r.prefetch(ctx, slides, resolver)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deck := &RenderedDeck{
		Title:    outline.Title,
		Subtitle: outline.Subtitle,
		Theme:    spec,
		Slides:   make([]RenderedSlide, 0, len(slides)),
	}
	for _, s := range slides {
		rs := layOut(s, images[s.Index])
		rs.Rule = spec.Rule(rs.Layout)
		applyRule(&rs)
		metrics.RecordLayout(string(rs.Layout))
		deck.Slides = append(deck.Slides, rs)
	}

	deck.References = references(deck.Slides, research, spec, len(deck.Slides))

	slog.Info("Deck rendered", "slides", len(deck.Slides), "citations", deck.Citations(), "theme", spec.Name)
	return deck, nil
}

func layOut(s model.PositionedSlide, asset *model.Asset) RenderedSlide {
	if s.Slide.Kind == model.KindTitle {
		rs := rendered(s, model.LayoutTitle)
		rs.Slide.Chart = nil
		rs.Slide.Statistics = nil
		return rs
	}
	for _, strategy := range chain {
		if rs, ok := strategy.attempt(s, asset); ok {
			return rs
		}
	}
	// unreachable: the content strategy always succeeds
	return rendered(s, model.LayoutContent)
}

func applyRule(rs *RenderedSlide) {
	if rs.Rule.MaxBullets > 0 && len(rs.Slide.Bullets) > rs.Rule.MaxBullets {
		rs.Slide.Bullets = rs.Slide.Bullets[:rs.Rule.MaxBullets]
	}
}

// needsImage reports whether the chosen layout can carry a picture for s:
// the image layout for image slides, or a side image on the content layout.
func needsImage(s model.Slide) bool {
	if s.Kind == model.KindTitle || s.ImageQuery == "" || s.HasValidChart() {
		return false
	}
	return s.Kind == model.KindImage || !s.HasValidStatistics()
}

// prefetch resolves images with at most r.parallelism downloads in flight.
// Results are addressed by slide index; failures leave a nil slot.
func (r *Renderer) prefetch(ctx context.Context, slides []model.PositionedSlide, resolver assets.Resolver) []*model.Asset {
	results := make([]*model.Asset, len(slides))
	if resolver == nil {
		return results
	}

	sem := make(chan struct{}, r.parallelism)
	var wg sync.WaitGroup
	for _, s := range slides {
		if !needsImage(s.Slide) {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			asset, err := resolver.Resolve(ctx, s.Slide.ImageQuery)
			if err != nil {
				slog.Warn("Image unavailable, falling back", "slide", s.Index+1, "query", s.Slide.ImageQuery, "error", err)
				return
			}
			results[s.Index] = asset
		}()
	}
	wg.Wait()
	return results
}

// references builds the citation-list slide. It lists the citations used by
// some slide or, when none are, every gathered item.
func references(slides []RenderedSlide, research model.ResearchItems, spec theme.Spec, index int) *RenderedSlide {
	if len(research) == 0 {
		return nil
	}

	byCitation := research.ByCitation()
	seen := make(map[int]bool)
	var cited []int
	for _, rs := range slides {
		for _, c := range rs.Slide.Citations {
			if _, ok := byCitation[c]; ok && !seen[c] {
				seen[c] = true
				cited = append(cited, c)
			}
		}
	}
	slices.Sort(cited)

	var items []model.ResearchItem
	if len(cited) == 0 {
		items = slices.Clone(research)
	} else {
		for _, c := range cited {
			items = append(items, byCitation[c])
		}
	}

	section := 0
	if len(slides) > 0 {
		section = slides[len(slides)-1].Section
	}
	return &RenderedSlide{
		Index:      index,
		Section:    section,
		Layout:     model.LayoutCitations,
		Rule:       spec.Rule(model.LayoutCitations),
		Slide:      model.Slide{Kind: model.KindCitations, Title: referencesTitle},
		References: items,
	}
}
