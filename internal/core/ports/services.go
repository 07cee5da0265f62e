package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HashService defines one-way hashing for wallet PINs.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, encodedHash string) (bool, error)
}

// TokenClaims holds the parsed access token.
type TokenClaims struct {
	UserID uuid.UUID
	Role   string
}

// TokenService issues and validates access tokens.
type TokenService interface {
	Generate(userID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// PaymentAuthorizer is the external gateway for non-wallet payment paths.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, payer uuid.UUID, amount decimal.Decimal) (bool, error)
}

// DepositRequest funds a wallet through the payment gateway.
type DepositRequest struct {
	Amount decimal.Decimal
}

// TransferRequest moves money from the caller's wallet to another account.
type TransferRequest struct {
	ToAccount string
	Amount    decimal.Decimal
	Pin       string
}

// LedgerPage is one page of a wallet's history.
type LedgerPage struct {
	Entries  []domain.LedgerEntry
	Total    int64
	Page     int
	PageSize int
}

// WalletService owns balance mutation rules.
type WalletService interface {
	CreateWallet(ctx context.Context, p domain.Principal, pin string) (*domain.Wallet, error)
	GetWallet(ctx context.Context, p domain.Principal) (*domain.Wallet, error)
	Deposit(ctx context.Context, p domain.Principal, req DepositRequest) (*domain.Wallet, error)
	Transfer(ctx context.Context, p domain.Principal, req TransferRequest) (*domain.LedgerEntry, error)
	ChangePin(ctx context.Context, p domain.Principal, oldPin, newPin string) error
	ListEntries(ctx context.Context, p domain.Principal, page, pageSize int) (*LedgerPage, error)
}

// LedgerPoster applies debits and credits inside a caller-owned transaction.
// The wallet row must already be locked by tx.
type LedgerPoster interface {
	Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, posting domain.Posting) (*domain.Wallet, error)
	Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, posting domain.Posting) (*domain.Wallet, error)
	// LockWallets locks the given wallets in ascending id order.
	LockWallets(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error)
}

// InventoryGuard reserves stock without ever overselling.
type InventoryGuard interface {
	ReserveStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (int, error)
}

// CartService manages the caller's cart.
type CartService interface {
	GetCart(ctx context.Context, p domain.Principal) (*domain.Cart, error)
	AddItem(ctx context.Context, p domain.Principal, productID uuid.UUID, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, p domain.Principal, productID uuid.UUID) (*domain.Cart, error)
}

// OrderService drives the order aggregate outside of settlement.
type OrderService interface {
	CreateFromCart(ctx context.Context, p domain.Principal) (*domain.Order, error)
	GetOrder(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error)
	Cancel(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error)
	Ship(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error)
	Deliver(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error)
}

// SettleRequest asks to pay for an order and ship it to a saved address.
// MalformedAddress marks an address id that was supplied but is not a UUID;
// it is rejected only after the ownership checks.
type SettleRequest struct {
	OrderID          uuid.UUID
	AddressID        *uuid.UUID
	MalformedAddress bool
}

// SettlementService turns a PENDING order into a PAID one.
type SettlementService interface {
	Settle(ctx context.Context, p domain.Principal, req SettleRequest) (*domain.Order, error)
}

// AuditService records audit trail entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
