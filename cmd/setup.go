package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"autodeck/internal/model"
	"autodeck/internal/storage"
	"autodeck/internal/theme"
	"autodeck/pkg/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var providerKeyURLs = map[string]string{
	"openai":    "https://platform.openai.com/api-keys",
	"anthropic": "https://console.anthropic.com/settings/keys",
	"google":    "https://aistudio.google.com/apikey",
	"groq":      "https://console.groq.com/keys",
	"deepseek":  "https://platform.deepseek.com/api_keys",
}

// setupAnswers collects what the wizard writes to config.yaml.
type setupAnswers struct {
	Provider  string
	Style     string
	Language  string
	Slides    string
	OutputDir string
	Bucket    bool
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Autodeck",
	Long:  `Configure API keys, defaults and the output directory, writing .env and config.yaml.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("Autodeck Setup"))

	answers := &setupAnswers{
		Provider:  model.DefaultProvider,
		Style:     model.DefaultStyle,
		Language:  model.DefaultLanguage,
		Slides:    strconv.Itoa(model.DefaultSlideCount),
		OutputDir: "output",
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Choosing defaults", func() error { return chooseDefaults(answers) }},
		{"Creating directories", func() error { return createDirectories(answers.OutputDir) }},
		{"Configuring environment", func() error { return configureEnv(answers) }},
		{"Writing config", func() error { return writeConfigFile(answers) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	printNextSteps()
	return nil
}

func chooseDefaults(answers *setupAnswers) error {
	providers := []huh.Option[string]{
		huh.NewOption("OpenAI", "openai"),
		huh.NewOption("Anthropic", "anthropic"),
		huh.NewOption("Google Gemini", "google"),
		huh.NewOption("Groq", "groq"),
		huh.NewOption("DeepSeek", "deepseek"),
		huh.NewOption("Mock (offline demo)", config.ProviderMock),
	}

	var styles []huh.Option[string]
	for _, name := range theme.Names() {
		styles = append(styles, huh.NewOption(name, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default provider").
				Options(providers...).
				Value(&answers.Provider),
			huh.NewSelect[string]().
				Title("Default style").
				Options(styles...).
				Value(&answers.Style),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Language").
				Value(&answers.Language).
				Validate(required("Language")),
			huh.NewInput().
				Title("Slides per deck").
				Value(&answers.Slides).
				Validate(slideCount),
			huh.NewInput().
				Title("Output directory").
				Value(&answers.OutputDir).
				Validate(required("Output directory")),
		),
	)
	return form.Run()
}

func createDirectories(outputDir string) error {
	if err := storage.NewLocalStorage(outputDir).EnsureDirectories(); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created " + outputDir))
	return nil
}

func configureEnv(answers *setupAnswers) error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureProviderKey(env, answers.Provider); err != nil {
		return err
	}

	if err := configureGCP(env, answers); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureProviderKey(env map[string]string, provider string) error {
	name := config.CredentialEnv(provider)
	if name == "" {
		return nil
	}

	var key string
	if err := huh.NewInput().
		Title(name).
		Description(providerKeyURLs[provider]).
		EchoMode(huh.EchoModePassword).
		Value(&key).
		Validate(required(name)).
		Run(); err != nil {
		return err
	}

	env[name] = strings.TrimSpace(key)
	return nil
}

func configureGCP(env map[string]string, answers *setupAnswers) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Used for image search, deck uploads and Secret Manager").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if commandExists("gcloud") {
		if project := getActiveProject(); project != "" {
			env["GOOGLE_CLOUD_PROJECT"] = project
			if err := enableGCPAPIs(project); err != nil {
				fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
			}
		}
	} else {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
	}

	if err := setupCustomSearch(env); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Custom Search skipped: %v", err)))
	}

	var bucket string
	if err := huh.NewInput().
		Title("Cloud Storage bucket for uploads").
		Description("Leave empty to keep decks local").
		Value(&bucket).
		Run(); err != nil {
		return err
	}
	if bucket = strings.TrimSpace(bucket); bucket != "" {
		env["GCS_BUCKET"] = bucket
		answers.Bucket = true
	}
	return nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"customsearch.googleapis.com",
		"secretmanager.googleapis.com",
		"storage.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func setupCustomSearch(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup Google Custom Search?").
		Description("Used to find pictures for image slides").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	fmt.Println(infoStyle.Render(`
To create Custom Search credentials:
1. Go to https://console.cloud.google.com/apis/credentials
2. Click "Create Credentials" → "API Key"
3. Go to https://programmablesearchengine.google.com/
4. Create a search engine with image search enabled and copy its ID
`))

	var apiKey, engineID string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Search API Key").
				Value(&apiKey),
			huh.NewInput().
				Title("Search Engine ID").
				Value(&engineID),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	engineID = strings.TrimSpace(engineID)

	if apiKey != "" {
		env["GOOGLE_SEARCH_API_KEY"] = apiKey
	}
	if engineID != "" {
		env["GOOGLE_SEARCH_ENGINE_ID"] = engineID
	}

	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GOOGLE_CLOUD_PROJECT",
		"OPENAI_API_KEY",
		"ANTHROPIC_API_KEY",
		"GOOGLE_API_KEY",
		"GROQ_API_KEY",
		"DEEPSEEK_API_KEY",
		"GOOGLE_SEARCH_API_KEY",
		"GOOGLE_SEARCH_ENGINE_ID",
		"GCS_BUCKET",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	return nil
}

// setupConfig mirrors the parts of config.yaml the wizard fills in.
type setupConfig struct {
	Generation struct {
		Provider  string `yaml:"provider"`
		Style     string `yaml:"style"`
		Language  string `yaml:"language"`
		Slides    int    `yaml:"slides"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"generation"`
	GCS *struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"gcs,omitempty"`
}

func writeConfigFile(answers *setupAnswers) error {
	var cfg setupConfig
	cfg.Generation.Provider = answers.Provider
	cfg.Generation.Style = answers.Style
	cfg.Generation.Language = strings.TrimSpace(answers.Language)
	cfg.Generation.Slides, _ = strconv.Atoi(strings.TrimSpace(answers.Slides))
	cfg.Generation.OutputDir = strings.TrimSpace(answers.OutputDir)
	if answers.Bucket {
		cfg.GCS = &struct {
			Enabled bool `yaml:"enabled"`
		}{Enabled: true}
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile("config.yaml", data, 0644); err != nil {
		return fmt.Errorf("write config.yaml: %w", err)
	}
	fmt.Println(successStyle.Render("✓ Created config.yaml"))
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Check credentials: autodeck auth status")
	fmt.Println("  2. Browse styles:     autodeck styles")
	fmt.Println("  3. Run: autodeck generate -t \"your topic\"")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func slideCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > model.MaxSlideCount {
		return fmt.Errorf("must be a number between 1 and %d", model.MaxSlideCount)
	}
	return nil
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
