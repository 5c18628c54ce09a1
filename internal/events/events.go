// Package events publishes match-set updates so the presentation layer can
// notify users about new recommendations.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/NathanBvumbwe/peza-ganyu/internal/schemas"
)

// DefaultTopic receives MatchesUpdated events.
const DefaultTopic = "matches.updated"

// MatchesUpdated announces that a user's match set was replaced.
type MatchesUpdated struct {
	UserID  int64     `json:"user_id"`
	Matches int       `json:"matches"`
	RunAt   time.Time `json:"run_at"`
}

// Publisher delivers match events.
type Publisher interface {
	PublishMatchesUpdated(ctx context.Context, ev MatchesUpdated) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// PublishMatchesUpdated does nothing.
func (Nop) PublishMatchesUpdated(context.Context, MatchesUpdated) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// KafkaPublisher sends events synchronously, keyed by user id so one user's
// updates stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a sync producer to brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishMatchesUpdated validates and sends ev.
func (p *KafkaPublisher) PublishMatchesUpdated(ctx context.Context, ev MatchesUpdated) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := schemas.Validate(schemas.MatchEvent, string(payload)); err != nil {
		return fmt.Errorf("invalid match event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.UserID, 10)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
