// Package metrics exposes Prometheus instruments for the tracker pipeline.
// A dedicated registry keeps the scrape output limited to what this
// service actually measures.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "impactgo"

// Metrics holds every instrument the pipeline reports to.
type Metrics struct {
	registry *prometheus.Registry

	ScanCycles   prometheus.Counter
	ScanDuration prometheus.Histogram
	GamesScanned prometheus.Counter
	PlaysScored  prometheus.Counter
	PlaysQueued  prometheus.Counter
	QueueDepth   prometheus.Gauge

	EnrichAttempts prometheus.Counter
	GIFsCreated    prometheus.Counter
	PostsPublished prometheus.Counter
	PublishErrors  prometheus.Counter
}

// New creates and registers all instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ScanCycles: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cycles_total",
			Help:      "Completed polling cycles against the Stats API.",
		}),
		ScanDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one full polling cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GamesScanned: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_scanned_total",
			Help:      "Games whose play feeds were fetched.",
		}),
		PlaysScored: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_scored_total",
			Help:      "Plays run through impact scoring.",
		}),
		PlaysQueued: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_queued_total",
			Help:      "Marquee plays accepted into the queue.",
		}),
		QueueDepth: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Plays currently waiting for enrichment.",
		}),

		EnrichAttempts: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_attempts_total",
			Help:      "Enrichment attempts, successful or not.",
		}),
		GIFsCreated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gifs_created_total",
			Help:      "GIFs rendered from Savant clips.",
		}),
		PostsPublished: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_published_total",
			Help:      "Plays posted to the Discord webhook.",
		}),
		PublishErrors: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed webhook deliveries.",
		}),
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
