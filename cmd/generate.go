package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"autodeck/internal/app"
	"autodeck/internal/model"
	"autodeck/pkg/config"
)

// deckFlags are shared by generate and batch.
type deckFlags struct {
	slides     int
	style      string
	provider   string
	language   string
	model      string
	noResearch bool
	upload     bool
}

func (f *deckFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.slides, "slides", "n", 0, "Number of slides (default from config)")
	cmd.Flags().StringVarP(&f.style, "style", "s", "", "Visual style, see 'autodeck styles'")
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "LLM provider: openai, anthropic, google, groq, deepseek or mock")
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Language of the slide text")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model override for the provider")
	cmd.Flags().BoolVar(&f.noResearch, "no-research", false, "Skip Wikipedia and DuckDuckGo lookups")
	cmd.Flags().BoolVar(&f.upload, "upload", false, "Upload the deck to Cloud Storage")
}

// apply folds flag overrides into cfg before the service is built.
func (f *deckFlags) apply(cfg *config.Config) {
	if f.noResearch {
		disabled := false
		cfg.Research.Enabled = &disabled
	}
	if f.upload {
		cfg.GCS.Enabled = true
	}
}

func (f *deckFlags) request(cfg *config.Config, topic string) model.TopicRequest {
	req := model.TopicRequest{
		Topic:      topic,
		Language:   cfg.Generation.Language,
		SlideCount: cfg.Generation.SlideCount,
		Style:      cfg.Generation.Style,
		Provider:   cfg.Generation.Provider,
		Model:      f.model,
	}
	if f.language != "" {
		req.Language = f.language
	}
	if f.slides != 0 {
		req.SlideCount = f.slides
	}
	if f.style != "" {
		req.Style = f.style
	}
	if f.provider != "" {
		req.Provider = f.provider
	}
	return req
}

var (
	genFlags  deckFlags
	genTopic  string
	genOutput string
	genOpen   bool
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	summaryKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(11)
	summaryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single deck",
	Long:  `Research a topic, plan an outline and render it to a .pptx file.`,
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "Topic of the presentation")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file (default <output_dir>/<topic>.pptx)")
	generateCmd.Flags().BoolVar(&genOpen, "open", false, "Open the deck when done")
	genFlags.register(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genTopic == "" {
		return errors.New("please provide --topic")
	}

	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	genFlags.apply(cfg)

	svc, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	req := genFlags.request(cfg, genTopic)
	req.OutputPath = genOutput

	result, err := generateWithSpinner(ctx, app.NewPipeline(svc), req)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(result))

	if genOpen {
		if err := browser.OpenFile(result.Path); err != nil {
			slog.Warn("Could not open deck", "path", result.Path, "error", err)
		}
	}
	return nil
}

func generateWithSpinner(ctx context.Context, pipeline *app.Pipeline, req model.TopicRequest) (*app.GenerateResult, error) {
	var result *app.GenerateResult
	var err error
	action := func() { result, err = pipeline.Generate(ctx, req) }

	if verbose {
		action()
	} else {
		_ = spinner.New().
			Title(fmt.Sprintf("Generating deck on %q", req.Topic)).
			Action(action).
			Run()
	}
	return result, err
}

func renderSummary(result *app.GenerateResult) string {
	row := func(key, value string) string {
		return summaryKeyStyle.Render(key) + value
	}

	rows := []string{
		summaryTitleStyle.Render("✓ " + result.Title),
		row("File", result.Path),
		row("Slides", fmt.Sprint(result.Slides)),
		row("Citations", fmt.Sprint(result.Citations)),
	}
	if result.URL != "" {
		rows = append(rows, row("Uploaded", result.URL))
	}
	return summaryBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
