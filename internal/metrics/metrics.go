// Package metrics holds the Prometheus collectors of the generation pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autodeck"

var (
	// Registry carries only autodeck collectors so a textfile dump stays small.
	Registry = prometheus.NewRegistry()

	ProviderCalls *prometheus.CounterVec

	ProviderRetries *prometheus.CounterVec

	ResearchItems *prometheus.CounterVec

	AssetOutcomes *prometheus.CounterVec

	LayoutsChosen *prometheus.CounterVec

	GenerationDuration *prometheus.HistogramVec
)

func init() {
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Provider retries by error kind",
		},
		[]string{"provider", "kind"},
	)

	ResearchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "research",
			Name:      "items_total",
			Help:      "Research items kept after dedupe and ranking",
		},
		[]string{"source"},
	)

	AssetOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assets",
			Name:      "resolutions_total",
			Help:      "Image resolutions by outcome",
		},
		[]string{"outcome"},
	)

	LayoutsChosen = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "layouts_total",
			Help:      "Rendered slides by chosen layout",
		},
		[]string{"layout"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "generation_duration_seconds",
			Help:      "End to end generation time in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "status"},
	)

	Registry.MustRegister(
		ProviderCalls,
		ProviderRetries,
		ResearchItems,
		AssetOutcomes,
		LayoutsChosen,
		GenerationDuration,
	)
}

func RecordProviderCall(provider, outcome string) {
	ProviderCalls.WithLabelValues(provider, outcome).Inc()
}

func RecordRetry(provider, kind string) {
	ProviderRetries.WithLabelValues(provider, kind).Inc()
}

func RecordResearchItem(source string) {
	ResearchItems.WithLabelValues(source).Inc()
}

func RecordAsset(outcome string) {
	AssetOutcomes.WithLabelValues(outcome).Inc()
}

func RecordLayout(layout string) {
	LayoutsChosen.WithLabelValues(layout).Inc()
}

func ObserveGeneration(provider, status string, elapsed time.Duration) {
	GenerationDuration.WithLabelValues(provider, status).Observe(elapsed.Seconds())
}

// WriteTextfile dumps every collector in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
