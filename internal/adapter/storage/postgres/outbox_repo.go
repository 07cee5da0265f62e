package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const outboxColumnList = `id, topic, event_key, event_type, payload, attempts, last_error, next_attempt_at, created_at, published_at`

// OutboxRepo implements ports.OutboxRepository.
type OutboxRepo struct {
	pool Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(pool Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Stage inserts events as part of tx, so they exist only if tx commits.
func (r *OutboxRepo) Stage(ctx context.Context, tx pgx.Tx, events ...*domain.OutboxEvent) error {
	for _, ev := range events {
		_, err := tx.Exec(ctx, `INSERT INTO outbox_events (`+outboxColumnList+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			ev.ID, ev.Topic, ev.Key, ev.EventType, ev.Payload, ev.Attempts,
			ev.LastError, ev.NextAttemptAt, ev.CreatedAt, ev.PublishedAt,
		)
		if err != nil {
			return wrapErr("stage outbox event", err)
		}
	}
	return nil
}

// ClaimPending leases due rows by moving next_attempt_at to leaseUntil.
// SKIP LOCKED lets several relays poll the same table without blocking.
func (r *OutboxRepo) ClaimPending(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*domain.OutboxEvent, error) {
	query := `UPDATE outbox_events SET next_attempt_at = $2
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE published_at IS NULL AND next_attempt_at IS NOT NULL AND next_attempt_at <= $1
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumnList

	rows, err := r.pool.Query(ctx, query, now, leaseUntil, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.OutboxEvent, 0, limit)
	for rows.Next() {
		ev := &domain.OutboxEvent{}
		if err := rows.Scan(
			&ev.ID, &ev.Topic, &ev.Key, &ev.EventType, &ev.Payload, &ev.Attempts,
			&ev.LastError, &ev.NextAttemptAt, &ev.CreatedAt, &ev.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	// RETURNING does not preserve the subquery order.
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE outbox_events
		SET published_at = $1, attempts = attempts + 1, last_error = NULL
		WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}

// MarkFailed records the error and reschedules; a nil next stores NULL,
// which parks the row out of ClaimPending's reach.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, next *time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $1, next_attempt_at = $2
		WHERE id = $3`, reason, next, id)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}
