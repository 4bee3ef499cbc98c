package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	System  SystemPrompts  `yaml:"system"`
	Outline OutlinePrompts `yaml:"outline"`
}

type SystemPrompts struct {
	Planner string `yaml:"planner"`
	Writer  string `yaml:"writer"`
}

type OutlinePrompts struct {
	Plan    string `yaml:"plan"`
	Section string `yaml:"section"`
}

type SystemParams struct {
	Persona  string
	Language string
}

type PlanParams struct {
	Topic      string
	Language   string
	Persona    string
	SlideCount int
	MinSlides  int
	MaxSlides  int
	Research   string
	Schema     string
	Feedback   string
}

type SectionParams struct {
	Topic       string
	Language    string
	Persona     string
	Section     string
	SlideTitles []string
	Research    string
	Schema      string
}

// Load reads prompts.yaml from the working directory and falls back to the
// built-in prompts when it does not exist.
func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return parse(data)
}

// Default returns the built-in prompts.
func Default() (*Prompts, error) {
	return parse(defaultPrompts)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	if p.Outline.Plan == "" || p.Outline.Section == "" {
		return nil, fmt.Errorf("parse prompts file: outline.plan and outline.section are required")
	}
	return &p, nil
}

func (p *Prompts) RenderPlannerSystem(params SystemParams) (string, error) {
	return render(p.System.Planner, params)
}

func (p *Prompts) RenderWriterSystem(params SystemParams) (string, error) {
	return render(p.System.Writer, params)
}

func (p *Prompts) RenderPlan(params PlanParams) (string, error) {
	return render(p.Outline.Plan, params)
}

func (p *Prompts) RenderSection(params SectionParams) (string, error) {
	return render(p.Outline.Section, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
