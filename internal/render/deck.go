package render

import (
	"autodeck/internal/model"
	"autodeck/internal/theme"
)

// RenderedSlide is one slide with its chosen layout and resolved rule.
type RenderedSlide struct {
	Index   int
	Section int
	Layout  model.Layout
	Rule    theme.LayoutRule
	Slide   model.Slide
	Image   *model.Asset
	// References is only set on the citation-list slide.
	References []model.ResearchItem
}

// RenderedDeck is the fully laid out presentation. Slides is 1:1 with the
// outline; References is nil when there is nothing to cite.
type RenderedDeck struct {
	Title      string
	Subtitle   string
	Theme      theme.Spec
	Slides     []RenderedSlide
	References *RenderedSlide
}

// All returns the content slides followed by the References slide.
func (d *RenderedDeck) All() []RenderedSlide {
	if d.References == nil {
		return d.Slides
	}
	out := make([]RenderedSlide, 0, len(d.Slides)+1)
	out = append(out, d.Slides...)
	return append(out, *d.References)
}

// Citations counts the entries of the References slide.
func (d *RenderedDeck) Citations() int {
	if d.References == nil {
		return 0
	}
	return len(d.References.References)
}
