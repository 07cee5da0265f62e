// Package kafka carries outbox events to Kafka and feeds consumer
// handlers from it.
package kafka

import (
	"context"
	"fmt"
	"time"

	"marketplace-settlement/config"

	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher. One writer serves every
// topic; the topic is set per message.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for cfg.Brokers. Messages are hashed on
// their key so that events for one aggregate land on one partition.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			Transport:    &kafkago.Transport{ClientID: cfg.ClientID},
		},
	}
}

// Publish writes one message and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
