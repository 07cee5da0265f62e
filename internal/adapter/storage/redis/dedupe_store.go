package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DedupeStore implements ports.ProcessedEventStore using Redis SET NX.
type DedupeStore struct {
	client *goredis.Client
	prefix string
}

// NewDedupeStore creates a new Redis-backed processed-event store.
func NewDedupeStore(client *goredis.Client) *DedupeStore {
	return &DedupeStore{
		client: client,
		prefix: "processed:",
	}
}

func (s *DedupeStore) key(consumer string, eventID uuid.UUID) string {
	return s.prefix + consumer + ":" + eventID.String()
}

// Claim reserves eventID for consumer. It returns false if the event was
// already claimed and the claim has not expired.
func (s *DedupeStore) Claim(ctx context.Context, consumer string, eventID uuid.UUID, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.key(consumer, eventID), 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis dedupe claim: %w", err)
	}
	return result == "OK", nil
}

// Release drops a claim so that a redelivery is processed again.
func (s *DedupeStore) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(consumer, eventID)).Err(); err != nil {
		return fmt.Errorf("redis dedupe release: %w", err)
	}
	return nil
}
