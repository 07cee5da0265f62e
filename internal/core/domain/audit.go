package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionWalletCreate    AuditAction = "WALLET_CREATE"
	AuditActionWalletDeposit   AuditAction = "WALLET_DEPOSIT"
	AuditActionWalletTransfer  AuditAction = "WALLET_TRANSFER"
	AuditActionWalletPinChange AuditAction = "WALLET_PIN_CHANGE"
	AuditActionCartAddItem     AuditAction = "CART_ADD_ITEM"
	AuditActionCartRemoveItem  AuditAction = "CART_REMOVE_ITEM"
	AuditActionOrderCreate     AuditAction = "ORDER_CREATE"
	AuditActionOrderCancel     AuditAction = "ORDER_CANCEL"
	AuditActionOrderPay        AuditAction = "ORDER_PAY"
	AuditActionOrderShip       AuditAction = "ORDER_SHIP"
	AuditActionOrderDeliver    AuditAction = "ORDER_DELIVER"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
