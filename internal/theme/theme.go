// Package theme maps style identifiers to complete visual specifications.
//
// The registry is closed: every style is defined here and built once at init.
// Resolve is total over the registered names and returns a ConfigError for
// anything else.
package theme

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"autodeck/internal/model"
)

// RegistryVersion changes whenever a registered style changes appearance.
const RegistryVersion = "v1"

type RGB struct {
	R, G, B uint8
}

// Hex returns the color as RRGGBB.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ARGB returns the opaque color as FFRRGGBB.
func (c RGB) ARGB() string {
	return "FF" + c.Hex()
}

// Lerp interpolates linearly towards to; t is clamped to [0,1].
func (c RGB) Lerp(to RGB, t float64) RGB {
	t = max(0, min(1, t))
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
	}
	return RGB{R: mix(c.R, to.R), G: mix(c.G, to.G), B: mix(c.B, to.B)}
}

type Palette struct {
	Title      RGB
	Text       RGB
	Background RGB
	Accent     RGB
}

type Fonts struct {
	Heading string
	Body    string
}

type BackgroundStrategy string

const (
	Solid    BackgroundStrategy = "solid"
	Gradient BackgroundStrategy = "gradient"
)

// Background holds one stop for solid fills and two or more for gradients,
// top to bottom.
type Background struct {
	Strategy BackgroundStrategy
	Stops    []RGB
}

type LayoutRule struct {
	TitleSize  int
	BodySize   int
	AccentSize int
	MaxBullets int
}

type Spec struct {
	Name           string
	Persona        string
	Palette        Palette
	Fonts          Fonts
	Background     Background
	DecorationLine bool
	Rules          map[model.Layout]LayoutRule
}

// Rule returns the layout rule for l. Every registered spec carries all rules.
func (s Spec) Rule(l model.Layout) LayoutRule {
	return s.Rules[l]
}

func (s Spec) clone() Spec {
	s.Rules = maps.Clone(s.Rules)
	s.Background.Stops = slices.Clone(s.Background.Stops)
	return s
}

// Resolve returns the spec registered for style.
func Resolve(style string) (Spec, error) {
	key := strings.ToLower(strings.TrimSpace(style))
	spec, ok := registry[key]
	if !ok {
		return Spec{}, model.NewConfigError("style", "unknown style %q (available: %s)", style, strings.Join(Names(), ", "))
	}
	return spec.clone(), nil
}

// Names returns the registered style identifiers in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}
