package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"autodeck/internal/theme"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the available visual styles",
	RunE:  runStyles,
}

func init() {
	rootCmd.AddCommand(stylesCmd)
}

func runStyles(cmd *cobra.Command, args []string) error {
	nameStyle := lipgloss.NewStyle().Bold(true).Width(16)
	for _, name := range theme.Names() {
		spec, err := theme.Resolve(name)
		if err != nil {
			return err
		}
		fmt.Println(nameStyle.Render(name) + swatches(spec) + "  " + describe(spec))
	}
	return nil
}

func swatches(spec theme.Spec) string {
	colors := []theme.RGB{spec.Palette.Background, spec.Palette.Title, spec.Palette.Text, spec.Palette.Accent}
	var out string
	for _, c := range colors {
		out += lipgloss.NewStyle().Background(lipgloss.Color("#" + c.Hex())).Render("   ")
	}
	return out
}

func describe(spec theme.Spec) string {
	desc := fmt.Sprintf("%s / %s", spec.Fonts.Heading, spec.Fonts.Body)
	if spec.Background.Strategy == theme.Gradient {
		desc += ", gradient"
	}
	if spec.DecorationLine {
		desc += ", accent line"
	}
	return desc
}
