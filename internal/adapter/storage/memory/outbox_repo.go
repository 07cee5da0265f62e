package memory

import (
	"context"
	"fmt"
	"time"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepo implements ports.OutboxRepository.
type OutboxRepo struct {
	s *Store
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(s *Store) *OutboxRepo {
	return &OutboxRepo{s: s}
}

// Stage appends events when tx commits; a rolled-back tx leaves no trace.
func (r *OutboxRepo) Stage(_ context.Context, tx pgx.Tx, events ...*domain.OutboxEvent) error {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	staged := make([]domain.OutboxEvent, 0, len(events))
	for _, ev := range events {
		staged = append(staged, *ev)
	}
	mt.later(func(s *Store) {
		for _, ev := range staged {
			s.outbox = append(s.outbox, &outboxRecord{event: ev})
		}
	})
	return nil
}

// ClaimPending leases due events by pushing their next attempt to leaseUntil.
func (r *OutboxRepo) ClaimPending(_ context.Context, now, leaseUntil time.Time, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.OutboxEvent, 0, limit)
	for _, rec := range r.s.outbox {
		if len(out) == limit {
			break
		}
		if rec.parked || rec.event.PublishedAt != nil || rec.event.NextAttemptAt.After(now) {
			continue
		}
		rec.event.NextAttemptAt = leaseUntil
		ev := rec.event
		out = append(out, &ev)
	}
	return out, nil
}

func (r *OutboxRepo) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := r.find(id)
	if rec == nil {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	rec.event.PublishedAt = &at
	rec.event.Attempts++
	return nil
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string, next *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := r.find(id)
	if rec == nil {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	rec.event.Attempts++
	rec.event.LastError = &reason
	if next == nil {
		rec.parked = true
		return nil
	}
	rec.event.NextAttemptAt = *next
	return nil
}

func (r *OutboxRepo) find(id uuid.UUID) *outboxRecord {
	for _, rec := range r.s.outbox {
		if rec.event.ID == id {
			return rec
		}
	}
	return nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}
