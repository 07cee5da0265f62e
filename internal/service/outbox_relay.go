package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/rs/zerolog"
)

// outboxRetryIntervals is the delay before attempt n+1 after n failures.
// Failures past the end of the table reuse the last interval.
var outboxRetryIntervals = []time.Duration{
	5 * time.Second,
	15 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

const (
	defaultRelayPollInterval = 2 * time.Second
	defaultRelayBatchSize    = 50
	defaultRelayLease        = 30 * time.Second
	defaultRelayMaxAttempts  = 10
)

func outboxRetryDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > len(outboxRetryIntervals) {
		return outboxRetryIntervals[len(outboxRetryIntervals)-1]
	}
	return outboxRetryIntervals[failures-1]
}

// OutboxRelay moves committed outbox events to the event publisher. It is
// the only component that retries, and it only retries delivery.
type OutboxRelay struct {
	repo      ports.OutboxRepository
	publisher ports.EventPublisher
	cfg       config.OutboxConfig
	wake      chan struct{}
	now       func() time.Time
	log       zerolog.Logger
}

// NewOutboxRelay creates a relay. Zero config values fall back to defaults.
func NewOutboxRelay(repo ports.OutboxRepository, publisher ports.EventPublisher, cfg config.OutboxConfig, log zerolog.Logger) *OutboxRelay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultRelayPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultRelayBatchSize
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultRelayLease
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultRelayMaxAttempts
	}
	return &OutboxRelay{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Notify implements ports.OutboxNotifier. It never blocks; wake-ups that
// arrive while one is pending are merged.
func (r *OutboxRelay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run relays until ctx is done, waking on the poll interval or Notify.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.log.Info().
		Dur("poll_interval", r.cfg.PollInterval).
		Int("batch_size", r.cfg.BatchSize).
		Msg("outbox relay started")

	for {
		r.drain(ctx)

		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// drain relays full batches back to back until the backlog is gone.
func (r *OutboxRelay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("outbox relay pass failed")
			return
		}
		if n < r.cfg.BatchSize {
			return
		}
	}
}

// RelayOnce claims one batch of due events, publishes them and returns how
// many were claimed.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	now := r.now()
	events, err := r.repo.ClaimPending(ctx, now, now.Add(r.cfg.Lease), r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox events: %w", err)
	}

	for _, ev := range events {
		r.deliver(ctx, ev)
	}
	return len(events), nil
}

func (r *OutboxRelay) deliver(ctx context.Context, ev *domain.OutboxEvent) {
	err := r.publisher.Publish(ctx, ev.Topic, ev.Key, ev.Payload)
	if err == nil {
		// If this write is lost the lease expires and the event goes out again;
		// consumers dedupe on event_id.
		if markErr := r.repo.MarkPublished(ctx, ev.ID, r.now()); markErr != nil {
			r.log.Warn().Err(markErr).Str("event_id", ev.ID.String()).Msg("outbox: failed to mark event published")
		}
		return
	}

	failures := ev.Attempts + 1
	var next *time.Time
	if failures < r.cfg.MaxAttempts {
		at := r.now().Add(outboxRetryDelay(failures))
		next = &at
		r.log.Warn().Err(err).
			Str("event_id", ev.ID.String()).
			Str("topic", ev.Topic).
			Int("attempt", failures).
			Time("next_attempt_at", at).
			Msg("outbox: publish failed, rescheduled")
	} else {
		r.log.Error().Err(err).
			Str("event_id", ev.ID.String()).
			Str("topic", ev.Topic).
			Str("event_type", ev.EventType).
			Int("attempt", failures).
			Msg("outbox: publish failed, event parked")
	}

	if markErr := r.repo.MarkFailed(ctx, ev.ID, err.Error(), next); markErr != nil {
		r.log.Warn().Err(markErr).Str("event_id", ev.ID.String()).Msg("outbox: failed to record publish failure")
	}
}
