package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"autodeck/internal/app"
	"autodeck/internal/metrics"
	"autodeck/internal/model"
	"autodeck/pkg/config"
)

var (
	batchFlags       deckFlags
	batchParallelism int
	batchMetrics     string
)

var (
	batchOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	batchFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate one deck per line of a file",
	Long: `Read topics from a file, one per line, and generate them concurrently.
Blank lines and lines starting with # are skipped. All runs share one provider
rate budget.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchFlags.register(batchCmd)
	batchCmd.Flags().IntVarP(&batchParallelism, "parallel", "j", 2, "Decks generated at the same time")
	batchCmd.Flags().StringVar(&batchMetrics, "metrics", "", "Write Prometheus metrics to this textfile")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open topics file: %w", err)
	}
	topics, err := readTopics(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return fmt.Errorf("no topics in %s", args[0])
	}

	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	batchFlags.apply(cfg)

	svc, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	reqs := make([]model.TopicRequest, len(topics))
	for i, topic := range topics {
		reqs[i] = batchFlags.request(cfg, topic)
	}

	slog.Info("Starting batch", "topics", len(reqs), "parallel", batchParallelism)
	results := app.NewPipeline(svc).GenerateBatch(ctx, reqs, batchParallelism)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Println(batchFailStyle.Render(fmt.Sprintf("✗ %s: %v", r.Request.Topic, r.Err)))
			continue
		}
		fmt.Println(batchOKStyle.Render(fmt.Sprintf("✓ %s → %s (%d slides)", r.Request.Topic, r.Result.Path, r.Result.Slides)))
	}

	textfile := batchMetrics
	if textfile == "" {
		textfile = cfg.Metrics.Textfile
	}
	if textfile != "" {
		if err := metrics.WriteTextfile(textfile); err != nil {
			slog.Warn("Failed to write metrics", "path", textfile, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d decks failed", failed, len(results))
	}
	return nil
}

func readTopics(r io.Reader) ([]string, error) {
	var topics []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	return topics, nil
}
