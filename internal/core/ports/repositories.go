package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Storage-level sentinels. Adapters wrap them so services can branch with errors.Is.
var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrLockTimeout  = errors.New("lock wait timed out")
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Wallet, error)
	ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
	UpdatePinHash(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, pinHash string) error
}

// LedgerRepository is the append-only record of balance changes.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error)
}

// ProductRepository exposes the catalog fields settlement reads and the
// stock counter it mutates.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// DecrementStock subtracts qty only if enough stock is on hand. ok is
	// false when no row matched (missing product or short stock).
	DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (remaining int, ok bool, err error)
}

// CartRepository stores cart lines; prices are always joined from the catalog.
type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
}

// OrderRepository persists orders together with their lines.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *domain.Order) error
}

// AddressRepository is a read-only view of users' address books.
type AddressRepository interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error)
}

// OutboxRepository stages events inside a unit of work and hands committed
// events to the relay.
type OutboxRepository interface {
	Stage(ctx context.Context, tx pgx.Tx, events ...*domain.OutboxEvent) error
	// ClaimPending leases up to limit due events until leaseUntil so that
	// concurrent relays do not pick the same rows.
	ClaimPending(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed records a failed attempt. A nil next parks the event.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, next *time.Time) error
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
