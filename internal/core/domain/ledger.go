package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKind is the operation a balance change is attributed to.
type LedgerKind string

const (
	LedgerKindTransfer        LedgerKind = "TRANSFER"
	LedgerKindDeposit         LedgerKind = "DEPOSIT"
	LedgerKindPinChange       LedgerKind = "PIN_CHANGE"
	LedgerKindOrderSettlement LedgerKind = "ORDER_SETTLEMENT"
)

// Direction tells whether an entry moved money into or out of the wallet.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
	DirectionNone   Direction = "NONE"
)

// LedgerEntry is one append-only row per balance change (or PIN rotation).
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Kind         LedgerKind      `json:"kind"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Counterparty string          `json:"counterparty,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Posting describes why a debit or credit happens.
type Posting struct {
	Kind         LedgerKind
	Counterparty string
	Reference    string
}
