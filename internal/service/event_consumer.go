package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Consumer names, used as dedupe namespaces.
const (
	ConsumerInventorySync = "inventory-sync"
	ConsumerNotifications = "notifications"
	ConsumerAuditTrail    = "audit-trail"
)

const defaultDedupeTTL = 72 * time.Hour

// EnvelopeHandler handles one decoded event.
type EnvelopeHandler func(ctx context.Context, env domain.Envelope) error

// Deduplicator makes handlers safe under at-least-once delivery: each event
// id reaches a given consumer's handler once per TTL.
type Deduplicator struct {
	store ports.ProcessedEventStore
	ttl   time.Duration
	log   zerolog.Logger
}

// NewDeduplicator creates a Deduplicator. A zero ttl selects 72h.
func NewDeduplicator(store ports.ProcessedEventStore, ttl time.Duration, log zerolog.Logger) *Deduplicator {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &Deduplicator{store: store, ttl: ttl, log: log}
}

// Wrap returns a transport-level handler for consumer. Undecodable messages
// are dropped, duplicates are acknowledged without running handler, and a
// failed handler releases its claim so the redelivery is processed.
func (d *Deduplicator) Wrap(consumer string, handler EnvelopeHandler) ports.EventHandler {
	return func(ctx context.Context, payload []byte) error {
		var env domain.Envelope
		if err := json.Unmarshal(payload, &env); err != nil || env.EventID == uuid.Nil {
			d.log.Error().Err(err).Str("consumer", consumer).Msg("dropping undecodable event")
			return nil
		}

		claimed, err := d.store.Claim(ctx, consumer, env.EventID, d.ttl)
		if err != nil {
			return fmt.Errorf("claim event %s: %w", env.EventID, err)
		}
		if !claimed {
			d.log.Debug().
				Str("consumer", consumer).
				Str("event_id", env.EventID.String()).
				Msg("duplicate event skipped")
			return nil
		}

		if err := handler(ctx, env); err != nil {
			if relErr := d.store.Release(ctx, consumer, env.EventID); relErr != nil {
				d.log.Warn().Err(relErr).Str("event_id", env.EventID.String()).Msg("failed to release event claim")
			}
			return err
		}
		return nil
	}
}

// InventorySync keeps the consumer-side stock mirror in step with
// stock.changed events.
type InventorySync struct {
	mirror ports.StockMirror
	ttl    time.Duration
	log    zerolog.Logger
}

// NewInventorySync creates an InventorySync. A zero ttl selects 72h.
func NewInventorySync(mirror ports.StockMirror, ttl time.Duration, log zerolog.Logger) *InventorySync {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &InventorySync{mirror: mirror, ttl: ttl, log: log}
}

// Handle implements EnvelopeHandler.
func (h *InventorySync) Handle(ctx context.Context, env domain.Envelope) error {
	if env.EventType != domain.EventTypeStockChanged {
		h.log.Debug().Str("event_type", env.EventType).Msg("inventory sync: ignoring event")
		return nil
	}

	var ev domain.StockChanged
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		h.log.Error().Err(err).Str("event_id", env.EventID.String()).Msg("inventory sync: bad stock.changed payload")
		return nil
	}

	applied, err := h.mirror.ApplyDelta(ctx, env.EventID, ev.ProductID, ev.Delta, h.ttl)
	if err != nil {
		return fmt.Errorf("apply stock delta: %w", err)
	}

	h.log.Info().
		Str("product_id", ev.ProductID.String()).
		Int("delta", ev.Delta).
		Bool("applied", applied).
		Msg("stock mirror updated")
	return nil
}

// Notifier is the sink for seller, wallet and audit events. Delivery to
// e-mail or push is owned by another team; this sink only logs.
type Notifier struct {
	log zerolog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{log: log}
}

// Handle implements EnvelopeHandler.
func (n *Notifier) Handle(_ context.Context, env domain.Envelope) error {
	switch env.EventType {
	case domain.EventTypeSellerSale:
		var ev domain.SellerSale
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return n.drop(env, err)
		}
		units := 0
		for _, it := range ev.Items {
			units += it.Quantity
		}
		n.log.Info().
			Str("seller_id", ev.SellerID.String()).
			Str("order_id", ev.OrderID.String()).
			Int("units", units).
			Str("ship_to_city", ev.DeliveryAddress.City).
			Msg("notify seller: new sale to ship")

	case domain.EventTypeWalletNotification:
		var ev domain.WalletNotification
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return n.drop(env, err)
		}
		n.log.Info().
			Str("owner_id", ev.OwnerID.String()).
			Str("kind", string(ev.Kind)).
			Str("subject", ev.Subject).
			Msg("notify wallet owner")

	case domain.EventTypeTransactionAudit:
		var ev domain.TransactionAudit
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return n.drop(env, err)
		}
		n.log.Info().
			Str("kind", string(ev.Kind)).
			Str("from", ev.FromAccount).
			Str("to", ev.ToAccount).
			Str("amount", ev.Amount.StringFixed(2)).
			Time("occurred_at", ev.OccurredAt).
			Msg("transaction audit")

	default:
		n.log.Debug().Str("event_type", env.EventType).Msg("notifier: ignoring event")
	}
	return nil
}

func (n *Notifier) drop(env domain.Envelope, err error) error {
	n.log.Error().Err(err).
		Str("event_id", env.EventID.String()).
		Str("event_type", env.EventType).
		Msg("notifier: bad payload")
	return nil
}
