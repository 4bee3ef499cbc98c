package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"autodeck/internal/storage"
	"autodeck/pkg/config"
)

var clearRemote bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove generated decks",
	Long:  `Remove all .pptx files from the output directory, and with --remote from the Cloud Storage prefix.`,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearRemote, "remote", false, "Also delete uploaded decks from Cloud Storage")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	count, err := storage.NewLocalStorage(cfg.Generation.OutputDir).Clear()
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d deck(s) from %s\n", count, cfg.Generation.OutputDir)

	if !clearRemote {
		return nil
	}
	if cfg.GCSBucket == "" {
		return fmt.Errorf("GCS_BUCKET must be set to clear remote decks")
	}

	gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCS.Prefix)
	if err != nil {
		return err
	}
	defer func() { _ = gcs.Close() }()

	count, err = gcs.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d deck(s) from gs://%s/%s\n", count, cfg.GCSBucket, cfg.GCS.Prefix)
	return nil
}
