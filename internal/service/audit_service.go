package service

import (
	"context"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const auditPersistTimeout = 5 * time.Second

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit logs are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget). The request
// context is not used for the write, so a finished request does not cancel it.
func (s *auditService) Log(_ context.Context, entry *domain.AuditLog) {
	if entry == nil {
		return
	}
	e := *entry
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	go func() {
		ev := s.log.Info().
			Str("action", string(e.Action)).
			Str("resource_type", e.ResourceType).
			Str("resource_id", e.ResourceID).
			Str("ip", e.IPAddress)
		if e.UserID != nil {
			ev = ev.Str("user_id", e.UserID.String())
		}
		ev.Msg("audit")

		if s.repo == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), auditPersistTimeout)
		defer cancel()
		if err := s.repo.Create(ctx, &e); err != nil {
			s.log.Warn().Err(err).Str("action", string(e.Action)).Msg("failed to persist audit log")
		}
	}()
}
