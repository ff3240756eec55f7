// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "callwatch"

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsFailed  *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Transcript metrics
	SegmentsUpserted    prometheus.Counter
	SegmentsRejected    prometheus.Counter
	BatchesIngested     prometheus.Counter
	ProjectionsComputed prometheus.Counter
	ProjectionSize      prometheus.Histogram

	// Media event metrics
	MediaEvents *prometheus.CounterVec

	// Orchestrator metrics
	RoomPolls      prometheus.Counter
	RoomPollErrors prometheus.Counter
	TokenRequests  *prometheus.CounterVec

	// Console feed metrics
	FeedClientsActive prometheus.Gauge

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of monitoring sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently connected monitoring sessions",
		}),
		SessionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of sessions ended by an error",
		}, []string{"reason"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of monitoring sessions in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),

		SegmentsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_upserted_total",
			Help:      "Total number of segment revisions accepted by the store",
		}),
		SegmentsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_rejected_total",
			Help:      "Total number of malformed segments rejected",
		}),
		BatchesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_ingested_total",
			Help:      "Total number of transcription event batches ingested",
		}),
		ProjectionsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projections_computed_total",
			Help:      "Total number of transcript projections computed",
		}),
		ProjectionSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_size_lines",
			Help:      "Number of lines in computed projections",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		MediaEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_events_total",
			Help:      "Total number of media session events received",
		}, []string{"kind"}),

		RoomPolls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_polls_total",
			Help:      "Total number of room list polls",
		}),
		RoomPollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_poll_errors_total",
			Help:      "Total number of failed room list polls",
		}),
		TokenRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Total number of join-token requests",
		}, []string{"outcome"}),

		FeedClientsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients_active",
			Help:      "Number of connected live-feed websocket clients",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish failures",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publishes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "event_type"}),
	}
}

// RecordSessionStart increments session counters.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending, with the failure reason when the
// end was not a clean disconnect.
func (m *Metrics) RecordSessionEnd(reason string, seconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(seconds)
	if reason != "" {
		m.SessionsFailed.WithLabelValues(reason).Inc()
	}
}

// RecordBatch records one ingested transcription batch.
func (m *Metrics) RecordBatch(accepted, rejected int) {
	m.BatchesIngested.Inc()
	m.SegmentsUpserted.Add(float64(accepted))
	m.SegmentsRejected.Add(float64(rejected))
}

// RecordProjection records one computed projection.
func (m *Metrics) RecordProjection(lines int) {
	m.ProjectionsComputed.Inc()
	m.ProjectionSize.Observe(float64(lines))
}

// RecordRoomPoll records one room list poll.
func (m *Metrics) RecordRoomPoll(err error) {
	m.RoomPolls.Inc()
	if err != nil {
		m.RoomPollErrors.Inc()
	}
}

// RecordTokenRequest records one join-token request by outcome.
func (m *Metrics) RecordTokenRequest(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.TokenRequests.WithLabelValues(outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(seconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
