package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "incident_notifier"

// Metrics holds the Prometheus counters, histograms, and gauges for a notifier run.
type Metrics struct {
	FeedRowsFetched   prometheus.Counter
	IncidentsIngested prometheus.Counter
	IngestRuns        *prometheus.CounterVec // labels: outcome={success,fetch_error,store_error}
	PipelineRunning   prometheus.Gauge

	// Batch and matching metrics.
	BatchSize           prometheus.Gauge
	LocationParseErrors prometheus.Counter
	AOIMatches          *prometheus.GaugeVec   // labels: aoi
	Notifications       *prometheus.CounterVec // labels: outcome={sent,no_incidents_sent,failed,skipped}

	// Map rendering metrics.
	MapImageCache *prometheus.CounterVec // labels: result={hit,miss}

	RunDuration       prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates and registers all notifier metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedRowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_rows_fetched_total",
			Help:      "Total rows read from the incident feed.",
		}),
		IncidentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_ingested_total",
			Help:      "Total new incidents appended to the store.",
		}),
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		BatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of incidents in the batch matched by the last run.",
		}),
		LocationParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_parse_errors_total",
			Help:      "Incidents excluded from matching because their location could not be parsed.",
		}),
		AOIMatches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aoi_matches",
			Help:      "Incidents matched per AOI in the last run.",
		}, []string{"aoi"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Per-AOI notification outcomes.",
		}, []string{"outcome"}),
		MapImageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_image_cache_total",
			Help:      "Static map image cache lookups by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete ingest and notify run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccessfulRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last run that completed ingestion.",
		}),
	}

	prometheus.MustRegister(
		m.FeedRowsFetched,
		m.IncidentsIngested,
		m.IngestRuns,
		m.PipelineRunning,
		m.BatchSize,
		m.LocationParseErrors,
		m.AOIMatches,
		m.Notifications,
		m.MapImageCache,
		m.RunDuration,
		m.LastSuccessfulRun,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedRowsFetched:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "feed_rows_fetched_total"}),
		IncidentsIngested:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "incidents_ingested_total"}),
		IngestRuns:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "ingest_runs_total"}, []string{"outcome"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "batch_size"}),
		LocationParseErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "location_parse_errors_total"}),
		AOIMatches:          prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "aoi_matches"}, []string{"aoi"}),
		Notifications:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total"}, []string{"outcome"}),
		MapImageCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "map_image_cache_total"}, []string{"result"}),
		RunDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "run_duration_seconds"}),
		LastSuccessfulRun:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "last_successful_run_timestamp_seconds"}),
	}
}
