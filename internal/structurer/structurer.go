// Package structurer turns a topic and its research into a validated,
// hierarchical outline in two phases: a plan call, then one detail call per
// section.
package structurer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"autodeck/internal/llm"
	"autodeck/internal/model"
	"autodeck/internal/theme"
	"autodeck/pkg/prompts"
)

const defaultParallelism = 4

// Generator is the slice of llm.Gateway the structurer needs.
type Generator interface {
	GenerateOutline(ctx context.Context, req llm.Request, out any) error
}

type Options struct {
	// Retries is how often a rejected plan is re-requested with feedback.
	Retries     int
	Parallelism int
}

type Structurer struct {
	gen     Generator
	prompts *prompts.Prompts
	opts    Options
}

func New(gen Generator, p *prompts.Prompts, opts Options) *Structurer {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	return &Structurer{gen: gen, prompts: p, opts: opts}
}

// Structure always yields a usable outline unless the provider refuses the
// credentials or the request, a transient failure outlasts the gateway's
// retries, or ctx is done.
func (s *Structurer) Structure(ctx context.Context, req model.TopicRequest, items model.ResearchItems, spec theme.Spec) (*model.Outline, error) {
	plan, err := s.plan(ctx, req, items, spec)
	if err != nil {
		if isFatal(ctx, err) {
			return nil, err
		}
		slog.Warn("Outline planning failed, using fallback outline", "topic", req.Topic, "error", err)
		return FallbackOutline(req.Topic), nil
	}

	slog.Info("Outline planned", "sections", len(plan.Sections), "slides", plan.SlideCount())

	outline, err := s.detail(ctx, req, items, spec, plan)
	if err != nil {
		return nil, err
	}
	sanitize(outline, req.Topic, items)
	return outline, nil
}

func (s *Structurer) plan(ctx context.Context, req model.TopicRequest, items model.ResearchItems, spec theme.Spec) (*OutlinePlan, error) {
	system, err := s.prompts.RenderPlannerSystem(prompts.SystemParams{Persona: spec.Persona, Language: req.Language})
	if err != nil {
		return nil, fmt.Errorf("render planner prompt: %w", err)
	}

	feedback := ""
	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		prompt, err := s.prompts.RenderPlan(prompts.PlanParams{
			Topic:      req.Topic,
			Language:   req.Language,
			Persona:    spec.Persona,
			SlideCount: req.SlideCount,
			MinSlides:  max(1, req.SlideCount-SlideTolerance),
			MaxSlides:  req.SlideCount + SlideTolerance,
			Research:   items.Summary(),
			Schema:     string(planSchema.JSON),
			Feedback:   feedback,
		})
		if err != nil {
			return nil, fmt.Errorf("render plan prompt: %w", err)
		}

		var plan OutlinePlan
		err = s.gen.GenerateOutline(ctx, llm.Request{
			System: system,
			Prompt: prompt,
			Schema: planSchema,
			Hints: llm.Hints{
				Topic:      req.Topic,
				Language:   req.Language,
				SlideCount: req.SlideCount,
				Style:      req.Style,
			},
		}, &plan)
		if err == nil {
			dropCitationSlides(&plan)
			if err = plan.Validate(); err == nil {
				err = plan.CheckCount(req.SlideCount)
			}
			if err == nil {
				return &plan, nil
			}
			err = fmt.Errorf("invalid outline: %w", err)
		}

		if isFatal(ctx, err) || !isRejection(err) {
			return nil, err
		}
		lastErr = err
		feedback = rejectionText(err)
		slog.Warn("Outline rejected, re-prompting", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (s *Structurer) detail(ctx context.Context, req model.TopicRequest, items model.ResearchItems, spec theme.Spec, plan *OutlinePlan) (*model.Outline, error) {
	system, err := s.prompts.RenderWriterSystem(prompts.SystemParams{Persona: spec.Persona, Language: req.Language})
	if err != nil {
		return nil, fmt.Errorf("render writer prompt: %w", err)
	}

	sections := make([]model.Section, len(plan.Sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, section := range plan.Sections {
		g.Go(func() error {
			slides, err := s.section(gctx, req, items, spec, system, section)
			if err != nil {
				if isFatal(gctx, err) {
					return err
				}
				slog.Warn("Section detail failed, keeping planned titles", "section", section.Title, "error", err)
				slides = degraded(req.Topic, section)
			}
			sections[i] = model.Section{Title: section.Title, Slides: slides}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detail sections: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &model.Outline{Title: plan.Title, Subtitle: plan.Subtitle, Sections: sections}, nil
}

func (s *Structurer) section(ctx context.Context, req model.TopicRequest, items model.ResearchItems, spec theme.Spec, system string, section PlanSection) ([]model.Slide, error) {
	titles := make([]string, len(section.Slides))
	for i, sl := range section.Slides {
		titles[i] = sl.Title
	}

	prompt, err := s.prompts.RenderSection(prompts.SectionParams{
		Topic:       req.Topic,
		Language:    req.Language,
		Persona:     spec.Persona,
		Section:     section.Title,
		SlideTitles: titles,
		Research:    items.Summary(),
		Schema:      string(sectionSchema.JSON),
	})
	if err != nil {
		return nil, fmt.Errorf("render section prompt: %w", err)
	}

	var detail SectionDetail
	err = s.gen.GenerateOutline(ctx, llm.Request{
		System: system,
		Prompt: prompt,
		Schema: sectionSchema,
		Hints: llm.Hints{
			Topic:       req.Topic,
			Language:    req.Language,
			SlideCount:  req.SlideCount,
			Style:       req.Style,
			Section:     section.Title,
			SlideTitles: titles,
		},
	}, &detail)
	if err != nil {
		return nil, err
	}
	return merge(req.Topic, section, detail.Slides), nil
}

// merge keeps the planned titles and order and takes bodies from the detail
// answer, matched by title first and position second.
func merge(topic string, section PlanSection, detailed []model.Slide) []model.Slide {
	byTitle := make(map[string]model.Slide, len(detailed))
	for _, d := range detailed {
		key := titleKey(d.Title)
		if _, ok := byTitle[key]; !ok {
			byTitle[key] = d
		}
	}

	out := make([]model.Slide, len(section.Slides))
	for i, planned := range section.Slides {
		d, ok := byTitle[titleKey(planned.Title)]
		if !ok && i < len(detailed) {
			d, ok = detailed[i], true
		}
		if !ok {
			out[i] = degradedSlide(topic, planned)
			continue
		}
		d.Title = planned.Title
		if !d.Kind.Valid() || d.Kind == model.KindCitations {
			d.Kind = planned.Kind
		}
		out[i] = d
	}
	return out
}

func degraded(topic string, section PlanSection) []model.Slide {
	out := make([]model.Slide, len(section.Slides))
	for i, planned := range section.Slides {
		out[i] = degradedSlide(topic, planned)
	}
	return out
}

func degradedSlide(topic string, planned PlanSlide) model.Slide {
	if planned.Kind == model.KindTitle {
		return model.Slide{Kind: model.KindTitle, Title: planned.Title}
	}
	return model.Slide{
		Kind:    model.KindContent,
		Title:   planned.Title,
		Bullets: []model.Bullet{{Text: fmt.Sprintf("%s: an overview in the context of %s", planned.Title, topic)}},
	}
}

func dropCitationSlides(plan *OutlinePlan) {
	sections := plan.Sections[:0]
	for _, section := range plan.Sections {
		slides := section.Slides[:0]
		for _, sl := range section.Slides {
			if sl.Kind == model.KindCitations {
				continue
			}
			if !sl.Kind.Valid() {
				sl.Kind = model.KindContent
			}
			slides = append(slides, sl)
		}
		if len(slides) > 0 {
			section.Slides = slides
			sections = append(sections, section)
		}
	}
	plan.Sections = sections
}

func titleKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// isFatal reports errors that must abort the run instead of degrading. Only
// malformed answers degrade.
func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	kind, ok := model.ProviderErrorKindOf(err)
	return ok && kind != model.ProviderMalformed
}

// isRejection reports answers worth re-prompting for: unusable JSON or a plan
// that failed validation.
func isRejection(err error) bool {
	kind, ok := model.ProviderErrorKindOf(err)
	if !ok {
		return true
	}
	return kind == model.ProviderMalformed
}

func rejectionText(err error) string {
	var perr *model.ProviderError
	if errors.As(err, &perr) && perr.Err != nil {
		return perr.Err.Error()
	}
	return err.Error()
}
