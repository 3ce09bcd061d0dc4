// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "podcast_session"

// Metrics holds all Prometheus metrics for the session core.
type Metrics struct {
	// Transcription run metrics
	RunsStarted prometheus.Counter
	RunsActive  prometheus.Gauge
	RunsDone    prometheus.Counter
	RunsFailed  *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Segment metrics
	SegmentsEmitted prometheus.Counter

	// Download metrics
	DownloadBytes  prometheus.Counter
	DownloadErrors prometheus.Counter

	// Playback metrics
	PlaybackLoads    prometheus.Counter
	PlaybackSeeks    prometheus.Counter
	SurfaceCommands  *prometheus.CounterVec
	DurationResolved prometheus.Counter
	DurationTimeouts prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Store metrics
	StoreSaves      prometheus.Counter
	StoreSaveErrors prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of transcription runs started",
		}),
		RunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of currently active transcription runs",
		}),
		RunsDone: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_done_total",
			Help:      "Total number of transcription runs completed",
		}),
		RunsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of transcription runs failed",
		}, []string{"reason"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of transcription runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		SegmentsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_emitted_total",
			Help:      "Total number of transcript segments emitted",
		}),

		DownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total audio bytes downloaded",
		}),
		DownloadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_errors_total",
			Help:      "Total number of failed audio downloads",
		}),

		PlaybackLoads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_loads_total",
			Help:      "Total number of media loads",
		}),
		PlaybackSeeks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_seeks_total",
			Help:      "Total number of seek requests issued",
		}),
		SurfaceCommands: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_commands_total",
			Help:      "Total number of transport-surface commands routed",
		}, []string{"kind"}),
		DurationResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duration_resolved_total",
			Help:      "Total number of media durations resolved",
		}),
		DurationTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duration_timeouts_total",
			Help:      "Total number of duration resolutions that timed out",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka publish attempts",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of failed Kafka publishes",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publishes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "event_type"}),

		StoreSaves: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_saves_total",
			Help:      "Total number of transcript record saves",
		}),
		StoreSaveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_save_errors_total",
			Help:      "Total number of failed transcript record saves",
		}),
	}
}

// RecordKafkaPublish records the outcome of one Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latency time.Duration) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(latency.Seconds())
}

// RecordRunFailed records a failed run with its failure reason label.
func (m *Metrics) RecordRunFailed(reason string) {
	m.RunsFailed.WithLabelValues(reason).Inc()
}
