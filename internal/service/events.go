package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// eventStager routes domain events to their topic and stages them in the
// caller's unit of work.
type eventStager struct {
	outbox ports.OutboxRepository
	topics config.TopicsConfig
}

func (s eventStager) topicFor(ev domain.Event) string {
	switch ev.EventType() {
	case domain.EventTypeStockChanged:
		return s.topics.InventoryUpdates
	case domain.EventTypeSellerSale:
		return s.topics.SellerNotifications
	case domain.EventTypeWalletNotification:
		return s.topics.WalletNotifications
	default:
		return s.topics.TransactionAudit
	}
}

func (s eventStager) stage(ctx context.Context, tx pgx.Tx, now time.Time, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	staged := make([]*domain.OutboxEvent, 0, len(events))
	for _, ev := range events {
		oe, err := domain.NewOutboxEvent(s.topicFor(ev), ev, now)
		if err != nil {
			return err
		}
		staged = append(staged, oe)
	}
	if err := s.outbox.Stage(ctx, tx, staged...); err != nil {
		return fmt.Errorf("stage events: %w", err)
	}
	return nil
}

// notify wakes the relay if one is wired.
func notify(n ports.OutboxNotifier) {
	if n != nil {
		n.Notify()
	}
}
