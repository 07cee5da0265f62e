package ports

//go:generate mockgen -source=messaging.go -destination=mocks/mock_messaging.go -package=mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventPublisher delivers one encoded event to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// OutboxNotifier wakes the relay after a commit. It never blocks.
type OutboxNotifier interface {
	Notify()
}

// EventHandler processes one delivered message.
type EventHandler func(ctx context.Context, payload []byte) error

// EventSubscriber runs a consumer loop for a topic until ctx is done.
type EventSubscriber interface {
	Consume(ctx context.Context, topic string, handler EventHandler) error
}

// ProcessedEventStore remembers event ids consumers have handled.
type ProcessedEventStore interface {
	// Claim returns true if eventID was not seen before and is now reserved.
	Claim(ctx context.Context, consumer string, eventID uuid.UUID, ttl time.Duration) (bool, error)
	// Release forgets a claim so a failed event can be redelivered.
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// StockMirror is the consumer-side copy of product stock.
type StockMirror interface {
	// ApplyDelta adds delta once per eventID; a repeat returns false.
	ApplyDelta(ctx context.Context, eventID, productID uuid.UUID, delta int, ttl time.Duration) (bool, error)
	Get(ctx context.Context, productID uuid.UUID) (int, bool, error)
	Set(ctx context.Context, productID uuid.UUID, stock int) error
}
