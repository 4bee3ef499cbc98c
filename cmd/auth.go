package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"

	"autodeck/pkg/config"
)

const storageScope = "https://www.googleapis.com/auth/devstorage.read_write"

var (
	authInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	authSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	authErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect credentials for external services",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check authentication status for all services",
	Long:  `Verify which providers and services have credentials configured.`,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(authInfoStyle.Render("\nService Authentication Status:\n"))

	for _, provider := range []string{"openai", "anthropic", "google", "groq", "deepseek"} {
		env := config.CredentialEnv(provider)
		marker := "  "
		if provider == cfg.Generation.Provider {
			marker = "* "
		}
		if cfg.APIKey(provider) != "" {
			fmt.Println(authSuccessStyle.Render(fmt.Sprintf("%s✓ %s: API key configured (%s)", marker, provider, cfg.ModelFor(provider))))
		} else {
			fmt.Println(authErrorStyle.Render(fmt.Sprintf("%s✗ %s: missing %s", marker, provider, env)))
		}
	}

	switch {
	case cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchEngineID != "":
		fmt.Println(authSuccessStyle.Render("  ✓ Google Search: configured"))
	case cfg.GoogleSearchAPIKey != "" || cfg.GoogleSearchEngineID != "":
		fmt.Println(authErrorStyle.Render("  ✗ Google Search: partially configured"))
	default:
		fmt.Println(authInfoStyle.Render("  ○ Google Search: not configured (optional, slides use text layouts)"))
	}

	if _, err := google.FindDefaultCredentials(ctx, storageScope); err == nil {
		fmt.Println(authSuccessStyle.Render("  ✓ Google Cloud: application default credentials found"))
	} else {
		fmt.Println(authInfoStyle.Render("  ○ Google Cloud: no application default credentials (run: gcloud auth application-default login)"))
	}

	if cfg.GCSBucket != "" {
		fmt.Println(authSuccessStyle.Render("  ✓ Cloud Storage: bucket " + cfg.GCSBucket))
	} else {
		fmt.Println(authInfoStyle.Render("  ○ Cloud Storage: GCS_BUCKET not set (optional)"))
	}

	if cfg.Secrets.Project != "" {
		fmt.Println(authSuccessStyle.Render("  ✓ Secret Manager: project " + cfg.Secrets.Project))
	}

	fmt.Println()
	return nil
}
