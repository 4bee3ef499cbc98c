package structurer

import (
	"fmt"
	"strings"

	"autodeck/internal/llm"
	"autodeck/internal/model"
)

// SlideTolerance is how far a plan's slide total may drift from the
// requested count before it is rejected.
const SlideTolerance = 2

type PlanSlide struct {
	Title string          `json:"title"`
	Kind  model.SlideKind `json:"kind" jsonschema:"enum=title,enum=content,enum=image,enum=chart,enum=statistics"`
}

type PlanSection struct {
	Title  string      `json:"title"`
	Slides []PlanSlide `json:"slides"`
}

// OutlinePlan is the answer of the first structuring call: the deck skeleton
// without slide bodies.
type OutlinePlan struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle,omitempty"`
	Sections []PlanSection `json:"sections"`
}

func (p *OutlinePlan) Validate() error {
	if len(p.Sections) == 0 {
		return fmt.Errorf("outline has no sections")
	}
	for i, s := range p.Sections {
		if len(s.Slides) == 0 {
			return fmt.Errorf("section %d (%q) has no slides", i+1, s.Title)
		}
		for j, slide := range s.Slides {
			if strings.TrimSpace(slide.Title) == "" {
				return fmt.Errorf("slide %d of section %d has an empty title", j+1, i+1)
			}
		}
	}
	return nil
}

func (p *OutlinePlan) SlideCount() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.Slides)
	}
	return n
}

// CheckCount rejects plans whose total is more than SlideTolerance away from
// requested.
func (p *OutlinePlan) CheckCount(requested int) error {
	got := p.SlideCount()
	if diff := got - requested; diff > SlideTolerance || diff < -SlideTolerance {
		return fmt.Errorf("outline has %d slides but %d were requested (allowed: %d to %d)",
			got, requested, max(1, requested-SlideTolerance), requested+SlideTolerance)
	}
	return nil
}

// SectionDetail is the answer of a per-section call.
type SectionDetail struct {
	Slides []model.Slide `json:"slides"`
}

func (d *SectionDetail) Validate() error {
	if len(d.Slides) == 0 {
		return fmt.Errorf("section detail has no slides")
	}
	return nil
}

var (
	planSchema    = llm.MustSchema(llm.SchemaPlan, &OutlinePlan{})
	sectionSchema = llm.MustSchema(llm.SchemaSection, &SectionDetail{})
)

// FallbackOutline is the deterministic outline used when the provider never
// produced a usable plan: a title slide and one overview slide.
func FallbackOutline(topic string) *model.Outline {
	subtitle := "Topic: " + topic
	return &model.Outline{
		Title:    topic,
		Subtitle: subtitle,
		Sections: []model.Section{
			{
				Title: topic,
				Slides: []model.Slide{{
					Kind:     model.KindTitle,
					Title:    topic,
					Subtitle: subtitle,
				}},
			},
			{
				Title: "Overview",
				Slides: []model.Slide{{
					Kind:  model.KindContent,
					Title: "Overview of " + topic,
					Bullets: []model.Bullet{
						{Text: fmt.Sprintf("What %s is and why it matters", topic)},
						{Text: fmt.Sprintf("Key developments in %s", topic)},
						{Text: fmt.Sprintf("Where %s is heading next", topic)},
					},
					Notes: fmt.Sprintf("Give a short overview of %s.", topic),
				}},
			},
		},
	}
}
