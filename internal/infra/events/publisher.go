// Package events publishes finished interaction outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"voice-tasks/internal/domain"
	"voice-tasks/internal/infra"
)

// Recorder receives publish results; *metrics.Metrics satisfies it.
type Recorder interface {
	RecordPublish(topic string, err error, elapsed time.Duration)
}

type Config struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per outcome, keyed by interaction id. When
// Kafka is disabled it only logs.
type Publisher struct {
	writer   MessageWriter
	topic    string
	clientID string
	retry    infra.RetryConfig
	recorder Recorder
	logger   *slog.Logger
}

func New(cfg Config, recorder Recorder, logger *slog.Logger) *Publisher {
	logger = logger.With("component", "events")
	p := &Publisher{
		topic:    cfg.Topic,
		clientID: cfg.ClientID,
		retry:    infra.DefaultRetryConfig(),
		recorder: recorder,
		logger:   logger,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("kafka disabled, outcomes are only logged")
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		ClientID:  cfg.ClientID,
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc, ClientID: cfg.ClientID},
	}

	logger.Info("kafka publisher initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return p
}

// NewWithWriter is used by tests to capture messages.
func NewWithWriter(w MessageWriter, topic string, recorder Recorder, logger *slog.Logger) *Publisher {
	retry := infra.DefaultRetryConfig()
	retry.InitialDelay = time.Millisecond
	return &Publisher{
		writer:   w,
		topic:    topic,
		retry:    retry,
		recorder: recorder,
		logger:   logger.With("component", "events"),
	}
}

type outcomeEvent struct {
	Type string `json:"type"`
	domain.Outcome
	DurationMS int64     `json:"duration_ms"`
	SentAt     time.Time `json:"sent_at"`
}

func (p *Publisher) Publish(ctx context.Context, outcome domain.Outcome) error {
	start := time.Now()

	payload, err := json.Marshal(outcomeEvent{
		Type:       "interaction." + outcome.State.String(),
		Outcome:    outcome,
		DurationMS: outcome.Duration.Milliseconds(),
		SentAt:     start.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}

	p.logger.Debug("publishing outcome", "topic", p.topic, "interaction", outcome.InteractionID, "payload", string(payload))

	if p.writer == nil {
		p.record(nil, start)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(outcome.InteractionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("interaction." + outcome.State.String())},
			{Key: "producer", Value: []byte(p.clientID)},
		},
	}

	// runs after the interaction has finished, outside the pipeline
	err = infra.WithRetry(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	p.record(err, start)
	if err != nil {
		return fmt.Errorf("writing to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) record(err error, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordPublish(p.topic, err, time.Since(start))
	}
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
