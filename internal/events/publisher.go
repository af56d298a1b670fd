// Package events publishes scoring and artifact events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/codebuildervaibhav/call-diarization/internal/observability/metrics"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Event types, sent in the eventType header.
const (
	TypeRecordingScored = "recording.scored"
	TypeRunCompleted    = "run.completed"
	TypeArtifactWritten = "artifact.written"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicScored   string
	TopicRun      string
	TopicArtifact string
	Principal     string
	Enabled       bool
}

// RecordingScored is published once per scored recording.
type RecordingScored struct {
	RunID  string             `json:"run_id"`
	Result types.MetricResult `json:"result"`
}

// RunCompleted is published when an evaluation run finishes.
type RunCompleted struct {
	RunID    string              `json:"run_id"`
	Summary  types.CorpusSummary `json:"summary"`
	Excluded int                 `json:"excluded"`
	Failed   int                 `json:"failed"`
}

// ArtifactWritten is published for every annotation file.
type ArtifactWritten struct {
	RecordingID string `json:"recording_id"`
	Path        string `json:"path"`
	Tiers       int    `json:"tiers"`
	Annotations int    `json:"annotations"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes pipeline events to separate Kafka topics. Disabled
// publishers only log.
type Publisher struct {
	writers   map[string]messageWriter
	topics    map[string]string
	principal string
	enabled   bool
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// New creates a new Kafka event publisher. A nil config or one without
// brokers yields a log-only publisher.
func New(cfg *Config, log zerolog.Logger, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	log = log.With().Str("component", "events").Logger()

	p := &Publisher{
		writers: make(map[string]messageWriter),
		topics:  make(map[string]string),
		log:     log,
		metrics: m,
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return p
	}

	p.principal = cfg.Principal
	p.topics[TypeRecordingScored] = cfg.TopicScored
	p.topics[TypeRunCompleted] = cfg.TopicRun
	p.topics[TypeArtifactWritten] = cfg.TopicArtifact

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	for eventType, topic := range p.topics {
		if topic == "" {
			continue
		}
		p.writers[eventType] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicScored", cfg.TopicScored).
		Str("topicRun", cfg.TopicRun).
		Str("topicArtifact", cfg.TopicArtifact).
		Msg("Kafka publisher initialized")

	return p
}

// RecordingScored publishes one recording's metrics keyed by recording id.
func (p *Publisher) RecordingScored(ctx context.Context, runID string, result types.MetricResult) error {
	return p.publish(ctx, TypeRecordingScored, result.RecordingID, RecordingScored{RunID: runID, Result: result})
}

// RunCompleted publishes the corpus summary keyed by run id.
func (p *Publisher) RunCompleted(ctx context.Context, report *types.Report) error {
	return p.publish(ctx, TypeRunCompleted, report.RunID, RunCompleted{
		RunID:    report.RunID,
		Summary:  report.Summary,
		Excluded: len(report.Excluded),
		Failed:   len(report.Failed),
	})
}

// ArtifactWritten publishes the location of a written annotation file.
func (p *Publisher) ArtifactWritten(ctx context.Context, event ArtifactWritten) error {
	return p.publish(ctx, TypeArtifactWritten, event.RecordingID, event)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, event any) error {
	topic := p.topics[eventType]

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	p.log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	writer, ok := p.writers[eventType]
	if !p.enabled || !ok {
		p.metrics.RecordKafkaPublish(topic, eventType, nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err)
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil)
	return nil
}

// Close closes all Kafka writers.
func (p *Publisher) Close() error {
	var err error
	for eventType, w := range p.writers {
		if e := w.Close(); e != nil {
			p.log.Error().Err(e).Str("event_type", eventType).Msg("Error closing writer")
			err = e
		}
	}
	return err
}
