// Package events publishes transcription run events to Kafka, best-effort.
// When Kafka is disabled the publisher degrades to log-only mode so the
// pipeline never depends on a broker being reachable.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"podcast-session-core/internal/config"
	"podcast-session-core/internal/observability/metrics"
)

// Publisher writes segment events and completed-transcript events to
// separate topics, keyed by media locator so all events for one episode
// land on the same partition.
type Publisher struct {
	writerSegment *kafka.Writer
	writerDone    *kafka.Writer
	producer      string
	topicSegment  string
	topicDone     string
	enabled       bool
	metrics       *metrics.Metrics
}

// New creates a publisher from Kafka configuration. A nil config, a
// disabled flag, or an empty broker list all yield log-only mode.
func New(cfg *config.KafkaConfig) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, transcript events are log-only")
		p := &Publisher{enabled: false, metrics: m}
		if cfg != nil {
			p.producer = cfg.Producer
			p.topicSegment = cfg.TopicPartial
			p.topicDone = cfg.TopicFinal
		}
		return p
	}

	// Longer dial timeout to survive slow DNS in container environments.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicSegment", cfg.TopicPartial).
		Str("topicDone", cfg.TopicFinal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerSegment: newWriter(cfg.TopicPartial),
		writerDone:    newWriter(cfg.TopicFinal),
		producer:      cfg.Producer,
		topicSegment:  cfg.TopicPartial,
		topicDone:     cfg.TopicFinal,
		enabled:       true,
		metrics:       m,
	}
}

// PublishSegment publishes one emitted transcript segment.
func (p *Publisher) PublishSegment(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerSegment, p.topicSegment, "segment", key, event)
}

// PublishDone publishes the completed transcript for a run.
func (p *Publisher) PublishDone(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerDone, p.topicDone, "done", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("producer", p.producer).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start))
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "producer", Value: []byte(p.producer)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start))
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start))
	return nil
}

// Close closes both writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerSegment != nil {
		if e := p.writerSegment.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing segment writer")
			err = e
		}
	}
	if p.writerDone != nil {
		if e := p.writerDone.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing done writer")
			err = e
		}
	}
	return err
}
