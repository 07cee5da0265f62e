package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/core/ports"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// handlerRetryDelays is the backoff between re-runs of a failing handler.
// The last delay repeats until the handler succeeds or the consumer stops;
// the offset is never committed past a message that has not been handled.
var handlerRetryDelays = []time.Duration{
	200 * time.Millisecond,
	1 * time.Second,
	5 * time.Second,
	30 * time.Second,
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Subscriber implements ports.EventSubscriber with consumer-group readers.
// Offsets are committed only after the handler has succeeded, so delivery
// is at-least-once.
type Subscriber struct {
	brokers   []string
	groupID   string
	log       zerolog.Logger
	newReader func(topic string) messageReader
	delays    []time.Duration
}

// NewSubscriber creates a subscriber joining cfg.ConsumerGroup.
func NewSubscriber(cfg config.KafkaConfig, log zerolog.Logger) *Subscriber {
	s := &Subscriber{
		brokers: cfg.Brokers,
		groupID: cfg.ConsumerGroup,
		log:     log,
		delays:  handlerRetryDelays,
	}
	s.newReader = func(topic string) messageReader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  s.brokers,
			Topic:    topic,
			GroupID:  s.groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return s
}

// Consume blocks, feeding messages from topic to handler until ctx is done.
func (s *Subscriber) Consume(ctx context.Context, topic string, handler ports.EventHandler) error {
	reader := s.newReader(topic)
	defer reader.Close()

	log := s.log.With().Str("topic", topic).Str("group", s.groupID).Logger()
	log.Info().Msg("Consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Consumer shutting down")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka fetch from %s: %w", topic, err)
		}

		if err := s.handle(ctx, msg, handler, log); err != nil {
			log.Info().Int64("offset", msg.Offset).Msg("Consumer stopped before message was handled")
			return nil
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit offset")
		}
	}
}

// handle runs handler until it succeeds. It returns an error only when ctx
// ends first, in which case the message stays uncommitted and is redelivered.
func (s *Subscriber) handle(ctx context.Context, msg kafkago.Message, handler ports.EventHandler, log zerolog.Logger) error {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, msg.Value)
		if err == nil {
			return nil
		}

		delay := s.delays[len(s.delays)-1]
		if attempt < len(s.delays) {
			delay = s.delays[attempt]
		}
		event := log.Warn()
		if attempt+1 >= len(s.delays) {
			event = log.Error()
		}
		event.Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Str("key", string(msg.Key)).
			Int("attempt", attempt+1).
			Dur("retry_in", delay).
			Msg("Handler failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
