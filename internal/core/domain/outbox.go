package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names carried in the envelope.
const (
	EventTypeStockChanged       = "stock.changed"
	EventTypeSellerSale         = "seller.sale"
	EventTypeWalletNotification = "wallet.notification"
	EventTypeTransactionAudit   = "transaction.audit"
)

// Event is a payload that can be staged in the outbox.
type Event interface {
	EventType() string
	// AggregateKey is the partition key, so events about one product or one
	// seller stay ordered.
	AggregateKey() string
}

// StockChanged tells inventory consumers that quantity on hand moved by Delta.
type StockChanged struct {
	ProductID uuid.UUID `json:"product_id"`
	Delta     int       `json:"delta"`
	OrderID   uuid.UUID `json:"order_id"`
}

func (StockChanged) EventType() string      { return EventTypeStockChanged }
func (e StockChanged) AggregateKey() string { return e.ProductID.String() }

// SoldItem is one order line as the seller sees it.
type SoldItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

// SellerSale asks the notification service to tell a seller what to ship where.
type SellerSale struct {
	SellerID        uuid.UUID  `json:"seller_id"`
	OrderID         uuid.UUID  `json:"order_id"`
	Items           []SoldItem `json:"items"`
	DeliveryAddress Address    `json:"delivery_address"`
}

func (SellerSale) EventType() string      { return EventTypeSellerSale }
func (e SellerSale) AggregateKey() string { return e.SellerID.String() }

// WalletNotification tells a wallet owner about a deposit, transfer or PIN change.
type WalletNotification struct {
	OwnerID       uuid.UUID  `json:"owner_id"`
	AccountNumber string     `json:"account_number"`
	Kind          LedgerKind `json:"kind"`
	Subject       string     `json:"subject"`
	Message       string     `json:"message"`
}

func (WalletNotification) EventType() string      { return EventTypeWalletNotification }
func (e WalletNotification) AggregateKey() string { return e.OwnerID.String() }

// TransactionAudit is the generic money-movement audit record.
type TransactionAudit struct {
	Kind        LedgerKind      `json:"kind"`
	FromAccount string          `json:"from_account,omitempty"`
	ToAccount   string          `json:"to_account,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func (TransactionAudit) EventType() string { return EventTypeTransactionAudit }
func (e TransactionAudit) AggregateKey() string {
	if e.FromAccount != "" {
		return e.FromAccount
	}
	return e.ToAccount
}

// Envelope is the wire format of every published event. Consumers dedupe
// on EventID.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// OutboxEvent is an event staged inside a unit of work and relayed after commit.
type OutboxEvent struct {
	ID            uuid.UUID
	Topic         string
	Key           string
	EventType     string
	Payload       []byte // marshaled Envelope
	Attempts      int
	LastError     *string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxEvent wraps ev in an Envelope addressed to topic.
func NewOutboxEvent(topic string, ev Event, now time.Time) (*OutboxEvent, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}

	id := uuid.New()
	payload, err := json.Marshal(Envelope{
		EventID:    id,
		EventType:  ev.EventType(),
		OccurredAt: now,
		Data:       data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	return &OutboxEvent{
		ID:            id,
		Topic:         topic,
		Key:           ev.AggregateKey(),
		EventType:     ev.EventType(),
		Payload:       payload,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}
