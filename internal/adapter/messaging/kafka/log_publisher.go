package kafka

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher is the EventPublisher used when no brokers are configured.
// It writes every event to the log and always succeeds.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.log.Info().
		Str("topic", topic).
		Str("key", key).
		RawJSON("event", payload).
		Msg("Event published to log sink")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
