// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"reading-timing-service/internal/observability/metrics"
)

// Publisher publishes timing lifecycle events to separate Kafka topics.
type Publisher struct {
	writerGenerated *kafka.Writer
	writerMissed    *kafka.Writer
	principal       string
	topicGenerated  string
	topicMissed     string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicGenerated string
	TopicMissed    string
	Principal      string
	Enabled        bool
}

// New creates a Kafka event publisher with separate topics for generated
// and missed timing data.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicGenerated: cfg.TopicGenerated,
			topicMissed:    cfg.TopicMissed,
			enabled:        false,
			metrics:        m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerGenerated := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicGenerated,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerMissed := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicMissed,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicGenerated", cfg.TopicGenerated).
		Str("topicMissed", cfg.TopicMissed).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerGenerated: writerGenerated,
		writerMissed:    writerMissed,
		principal:       cfg.Principal,
		topicGenerated:  cfg.TopicGenerated,
		topicMissed:     cfg.TopicMissed,
		enabled:         true,
		metrics:         m,
	}
}

// PublishGenerated publishes a timing-generated event.
func (p *Publisher) PublishGenerated(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerGenerated, p.topicGenerated, "generated", key, event)
}

// PublishMissed publishes a timing-missed event.
func (p *Publisher) PublishMissed(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerMissed, p.topicMissed, "missed", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log.
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerGenerated != nil {
		if e := p.writerGenerated.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing generated writer")
			err = e
		}
	}
	if p.writerMissed != nil {
		if e := p.writerMissed.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing missed writer")
			err = e
		}
	}
	return err
}
