package theme

import "autodeck/internal/model"

type definition struct {
	name       string
	persona    string
	title      RGB
	text       RGB
	background RGB
	accent     RGB
	gradientTo *RGB
	font       string
	decoration bool
	tweak      func(map[model.Layout]LayoutRule)
}

var registry = buildRegistry(definitions)

var definitions = []definition{
	{
		name:       "minimalist",
		persona:    "a calm, minimalist speaker who prefers short, precise statements and generous whitespace",
		title:      RGB{40, 40, 40},
		text:       RGB{80, 80, 80},
		background: RGB{255, 255, 255},
		accent:     RGB{100, 100, 100},
		font:       "Arial",
	},
	{
		name:       "technology",
		persona:    "a technology analyst who grounds every claim in architecture, benchmarks and adoption data",
		title:      RGB{0, 102, 204},
		text:       RGB{200, 200, 255},
		background: RGB{10, 10, 40},
		accent:     RGB{0, 150, 255},
		gradientTo: &RGB{30, 30, 80},
		font:       "Arial",
	},
	{
		name:       "nature",
		persona:    "an environmental storyteller who connects facts to ecosystems and sustainability",
		title:      RGB{34, 139, 34},
		text:       RGB{50, 80, 50},
		background: RGB{245, 255, 250},
		accent:     RGB{60, 179, 113},
		font:       "Georgia",
	},
	{
		name:       "creative",
		persona:    "a creative director who favors vivid examples, metaphors and bold visual ideas",
		title:      RGB{200, 50, 150},
		text:       RGB{60, 40, 60},
		background: RGB{255, 250, 240},
		accent:     RGB{255, 105, 180},
		font:       "Verdana",
	},
	{
		name:       "corporate",
		persona:    "a management consultant who frames content as findings, impact and recommendations",
		title:      RGB{0, 51, 102},
		text:       RGB{51, 51, 51},
		background: RGB{240, 248, 255},
		accent:     RGB{0, 102, 153},
		font:       "Calibri",
	},
	{
		name:       "academic",
		persona:    "a university lecturer who defines terms carefully and cites primary sources",
		title:      RGB{128, 0, 32},
		text:       RGB{64, 64, 64},
		background: RGB{255, 253, 245},
		accent:     RGB{139, 69, 19},
		font:       "Times New Roman",
		tweak: func(rules map[model.Layout]LayoutRule) {
			content := rules[model.LayoutContent]
			content.BodySize = 14
			content.MaxBullets = 10
			rules[model.LayoutContent] = content
		},
	},
	{
		name:       "startup",
		persona:    "a startup founder pitching to investors with traction numbers and market size",
		title:      RGB{255, 87, 51},
		text:       RGB{51, 51, 51},
		background: RGB{250, 250, 250},
		accent:     RGB{255, 140, 0},
		font:       "Helvetica",
	},
	{
		name:       "dark",
		persona:    "a developer advocate who speaks plainly and favors concrete technical detail",
		title:      RGB{0, 200, 150},
		text:       RGB{200, 200, 200},
		background: RGB{20, 20, 30},
		accent:     RGB{138, 43, 226},
		gradientTo: &RGB{40, 20, 60},
		font:       "Consolas",
	},
	{
		name:       "luxury",
		persona:    "a luxury brand strategist who emphasizes heritage, craftsmanship and exclusivity",
		title:      RGB{212, 175, 55},
		text:       RGB{240, 240, 240},
		background: RGB{25, 25, 35},
		accent:     RGB{180, 140, 40},
		gradientTo: &RGB{45, 35, 55},
		font:       "Georgia",
		decoration: true,
	},
	{
		name:       "magazine",
		persona:    "a feature editor who writes punchy headlines and human-interest angles",
		title:      RGB{220, 20, 60},
		text:       RGB{30, 30, 30},
		background: RGB{255, 255, 255},
		accent:     RGB{220, 20, 60},
		font:       "Helvetica",
		decoration: true,
		tweak: func(rules map[model.Layout]LayoutRule) {
			for _, l := range []model.Layout{model.LayoutContent, model.LayoutChart, model.LayoutStatistics} {
				r := rules[l]
				r.TitleSize = 32
				rules[l] = r
			}
		},
	},
	{
		name:       "tech_gradient",
		persona:    "a product keynote presenter who highlights launches, capabilities and momentum",
		title:      RGB{255, 255, 255},
		text:       RGB{230, 230, 250},
		background: RGB{63, 81, 181},
		accent:     RGB{0, 188, 212},
		gradientTo: &RGB{156, 39, 176},
		font:       "Arial",
		decoration: true,
	},
	{
		name:       "ocean",
		persona:    "a marine science communicator who explains systems through flows and cycles",
		title:      RGB{255, 255, 255},
		text:       RGB{220, 240, 255},
		background: RGB{0, 105, 148},
		accent:     RGB{0, 200, 200},
		gradientTo: &RGB{0, 50, 100},
		font:       "Arial",
	},
	{
		name:       "sunset",
		persona:    "an inspirational speaker who closes every point with a memorable takeaway",
		title:      RGB{255, 255, 255},
		text:       RGB{255, 240, 220},
		background: RGB{255, 100, 80},
		accent:     RGB{255, 200, 100},
		gradientTo: &RGB{180, 50, 100},
		font:       "Georgia",
		decoration: true,
	},
}

func defaultRules() map[model.Layout]LayoutRule {
	return map[model.Layout]LayoutRule{
		model.LayoutTitle:      {TitleSize: 40, BodySize: 20, AccentSize: 20, MaxBullets: 0},
		model.LayoutContent:    {TitleSize: 28, BodySize: 16, AccentSize: 16, MaxBullets: 8},
		model.LayoutImage:      {TitleSize: 48, BodySize: 14, AccentSize: 14, MaxBullets: 1},
		model.LayoutChart:      {TitleSize: 28, BodySize: 12, AccentSize: 14, MaxBullets: 0},
		model.LayoutStatistics: {TitleSize: 28, BodySize: 16, AccentSize: 54, MaxBullets: model.MaxStatistics},
		model.LayoutCitations:  {TitleSize: 28, BodySize: 12, AccentSize: 12, MaxBullets: 15},
	}
}

func buildRegistry(defs []definition) map[string]Spec {
	out := make(map[string]Spec, len(defs))
	for _, d := range defs {
		rules := defaultRules()
		if d.tweak != nil {
			d.tweak(rules)
		}

		bg := Background{Strategy: Solid, Stops: []RGB{d.background}}
		if d.gradientTo != nil {
			bg = Background{Strategy: Gradient, Stops: []RGB{d.background, *d.gradientTo}}
		}

		out[d.name] = Spec{
			Name:    d.name,
			Persona: d.persona,
			Palette: Palette{
				Title:      d.title,
				Text:       d.text,
				Background: d.background,
				Accent:     d.accent,
			},
			Fonts:          Fonts{Heading: d.font, Body: d.font},
			Background:     bg,
			DecorationLine: d.decoration,
			Rules:          rules,
		}
	}
	return out
}
