// Package metrics provides Prometheus metrics for the diarization pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "call_diarization"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Job metrics
	JobsTotal    *prometheus.CounterVec
	JobsActive   prometheus.Gauge
	JobDuration  *prometheus.HistogramVec
	JobsPanicked prometheus.Counter

	// Scoring metrics
	RecordingsScored  prometheus.Counter
	RecordingsSkipped *prometheus.CounterVec
	RecordsMalformed  *prometheus.CounterVec
	MetricValue       *prometheus.HistogramVec

	// Artifact metrics
	ArtifactsWritten prometheus.Counter
	TiersWritten     prometheus.Counter

	// Transcription metrics
	TranscriptionLatency *prometheus.HistogramVec
	TranscriptionErrors  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal  *prometheus.CounterVec
	KafkaPublishErrors *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewMetricsWithRegistry registers the metrics on reg instead of the default
// registry, so tests can build isolated instances.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of per-recording jobs by kind and outcome",
		}, []string{"kind", "status"}),
		JobsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Number of jobs currently running",
		}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of per-recording jobs in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"kind"}),
		JobsPanicked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_panicked_total",
			Help:      "Total number of jobs that panicked and were recovered",
		}),

		RecordingsScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_scored_total",
			Help:      "Total number of recordings scored",
		}),
		RecordingsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_skipped_total",
			Help:      "Recordings present on only one side of an evaluation",
		}, []string{"side"}),
		RecordsMalformed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_malformed_total",
			Help:      "Transcript rows skipped as malformed",
		}, []string{"source"}),
		MetricValue: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metric_value",
			Help:      "Distribution of per-recording error rates",
			Buckets:   []float64{0, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1, 1.5, 2},
		}, []string{"metric"}),

		ArtifactsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Total number of annotation files written",
		}),
		TiersWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiers_written_total",
			Help:      "Total number of tiers across written annotation files",
		}),

		TranscriptionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Transcription latency per audio file in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"provider"}),
		TranscriptionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of failed transcription attempts",
		}, []string{"provider"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
	}
}

// RecordJobStart records a job being picked up by a worker.
func (m *Metrics) RecordJobStart() {
	m.JobsActive.Inc()
}

// RecordJobEnd records a finished job.
func (m *Metrics) RecordJobEnd(kind, status string, durationSeconds float64) {
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(kind, status).Inc()
	m.JobDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordJobPanic records a recovered panic.
func (m *Metrics) RecordJobPanic() {
	m.JobsPanicked.Inc()
}

// RecordScore records the metrics of one scored recording.
func (m *Metrics) RecordScore(wer, der, jer, detection float64) {
	m.RecordingsScored.Inc()
	m.MetricValue.WithLabelValues("wer").Observe(wer)
	m.MetricValue.WithLabelValues("der").Observe(der)
	m.MetricValue.WithLabelValues("jer").Observe(jer)
	m.MetricValue.WithLabelValues("detection").Observe(detection)
}

// RecordMismatch records a recording excluded from scoring.
func (m *Metrics) RecordMismatch(side string) {
	m.RecordingsSkipped.WithLabelValues(side).Inc()
}

// RecordMalformed records skipped rows for a source.
func (m *Metrics) RecordMalformed(source string, n int) {
	if n > 0 {
		m.RecordsMalformed.WithLabelValues(source).Add(float64(n))
	}
}

// RecordArtifact records a written annotation file.
func (m *Metrics) RecordArtifact(tiers int) {
	m.ArtifactsWritten.Inc()
	m.TiersWritten.Add(float64(tiers))
}

// RecordTranscription records one transcription attempt.
func (m *Metrics) RecordTranscription(provider string, err error, latencySeconds float64) {
	m.TranscriptionLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.TranscriptionErrors.WithLabelValues(provider).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
