package structurer

import (
	"log/slog"
	"strings"

	"autodeck/internal/model"
)

// sanitize enforces the outline invariants the renderer relies on. It never
// changes the slide count.
func sanitize(o *model.Outline, topic string, items model.ResearchItems) {
	if strings.TrimSpace(o.Title) == "" {
		o.Title = topic
	}

	known := items.ByCitation()
	for si := range o.Sections {
		for i := range o.Sections[si].Slides {
			sanitizeSlide(&o.Sections[si].Slides[i], known)
		}
	}

	if len(o.Sections) == 0 || len(o.Sections[0].Slides) == 0 {
		return
	}
	first := &o.Sections[0].Slides[0]
	if first.Kind != model.KindTitle {
		first.Kind = model.KindTitle
		first.Chart = nil
		first.Statistics = nil
	}
	if first.Subtitle == "" {
		first.Subtitle = o.Subtitle
	}
	if first.Subtitle == "" {
		first.Subtitle = "Topic: " + topic
	}
}

func sanitizeSlide(s *model.Slide, known map[int]model.ResearchItem) {
	s.Title = strings.TrimSpace(s.Title)
	if !s.Kind.Valid() || s.Kind == model.KindCitations {
		s.Kind = model.KindContent
	}

	if s.Chart != nil {
		if err := s.Chart.Validate(); err != nil {
			slog.Debug("Dropping invalid chart", "slide", s.Title, "error", err)
			s.Chart = nil
		}
	}
	if s.Kind == model.KindChart && s.Chart == nil {
		s.Kind = model.KindContent
	}

	if len(s.Statistics) > model.MaxStatistics {
		s.Statistics = s.Statistics[:model.MaxStatistics]
	}
	if len(s.Statistics) > 0 && !s.HasValidStatistics() {
		slog.Debug("Dropping invalid statistics", "slide", s.Title)
		s.Statistics = nil
	}
	if s.Kind == model.KindStatistics && len(s.Statistics) == 0 {
		s.Kind = model.KindContent
	}

	s.Citations = filterCitations(s.Citations, known)
	s.ImageQuery = strings.TrimSpace(s.ImageQuery)
}

// filterCitations drops unknown and repeated indices, keeping first order.
func filterCitations(cites []int, known map[int]model.ResearchItem) []int {
	if len(cites) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(cites))
	var out []int
	for _, c := range cites {
		if _, ok := known[c]; !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
