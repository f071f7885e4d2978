package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grid_timeline"

// Metrics holds the Prometheus counters, histograms, and gauges for ingest and refresh.
type Metrics struct {
	// Ingest metrics.
	MessagesConsumed        prometheus.Counter
	RecordsStored           *prometheus.CounterVec // labels: kind={event,attack,schedule}
	ParseErrors             prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Refresh metrics.
	Refreshes        *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration  prometheus.Histogram
	DaysGenerated    prometheus.Gauge
	DaysPublished    prometheus.Counter
	TodayQuality     prometheus.Gauge
	ScheduleAccuracy prometheus.Gauge

	// Supabase source metrics.
	SourceRequests *prometheus.CounterVec // labels: table, outcome={success,retry,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      help("Total messages read from the source topic."),
		}),
		RecordsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_stored_total",
			Help:      help("Input records written to the store by kind."),
		}, []string{"kind"}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      help("Source messages that could not be parsed and were skipped."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the ingest loop is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of messages per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete extract-parse-store cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      help("Timeline regenerations by outcome."),
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      help("Duration of load, generate, and publish for one refresh."),
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		DaysGenerated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "days_generated",
			Help:      help("Days in the latest timeline snapshot."),
		}),
		DaysPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_published_total",
			Help:      help("Day summaries written to the sink topic."),
		}),
		TodayQuality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "today_quality_index",
			Help:      help("Quality index of the current day so far, 0 to 1."),
		}),
		ScheduleAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_accuracy_percent",
			Help:      help("Pooled schedule accuracy of the newest scored week."),
		}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      help("Supabase table requests by table and outcome."),
		}, []string{"table", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.RecordsStored,
		m.ParseErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Refreshes,
		m.RefreshDuration,
		m.DaysGenerated,
		m.DaysPublished,
		m.TodayQuality,
		m.ScheduleAccuracy,
		m.SourceRequests,
	}
}
