// Package memory is a process-local storage driver with the same
// transactional guarantees the settlement path relies on from Postgres:
// row locks held to the end of a unit of work and all-or-nothing commits.
package memory

import (
	"context"
	"sync"
	"time"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultLockTimeout = 5 * time.Second

type cartItem struct {
	productID uuid.UUID
	quantity  int
}

type outboxRecord struct {
	event  domain.OutboxEvent
	parked bool
}

// Store holds committed state. mu guards the maps; row locks live in locks.
type Store struct {
	mu sync.RWMutex

	wallets         map[uuid.UUID]domain.Wallet
	walletByOwner   map[uuid.UUID]uuid.UUID
	walletByAccount map[string]uuid.UUID
	ledger          map[uuid.UUID][]domain.LedgerEntry
	products        map[uuid.UUID]domain.Product
	addresses       map[uuid.UUID]domain.Address
	carts           map[uuid.UUID][]cartItem
	orders          map[uuid.UUID]domain.Order
	outbox          []*outboxRecord
	audit           []domain.AuditLog

	locks       *lockTable
	lockTimeout time.Duration
}

// NewStore creates an empty store. lockTimeout bounds every row-lock wait;
// zero selects a default.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Store{
		wallets:         make(map[uuid.UUID]domain.Wallet),
		walletByOwner:   make(map[uuid.UUID]uuid.UUID),
		walletByAccount: make(map[string]uuid.UUID),
		ledger:          make(map[uuid.UUID][]domain.LedgerEntry),
		products:        make(map[uuid.UUID]domain.Product),
		addresses:       make(map[uuid.UUID]domain.Address),
		carts:           make(map[uuid.UUID][]cartItem),
		orders:          make(map[uuid.UUID]domain.Order),
		locks:           newLockTable(),
		lockTimeout:     lockTimeout,
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(_ context.Context) (pgx.Tx, error) {
	return newTx(s), nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// PutProduct inserts or replaces a catalog product.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutAddress inserts or replaces an address-book entry.
func (s *Store) PutAddress(a domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[a.ID] = a
}

// Product returns the committed product row.
func (s *Store) Product(id uuid.UUID) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// Wallet returns the committed wallet row.
func (s *Store) Wallet(id uuid.UUID) (domain.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	return w, ok
}

// LedgerEntries returns every committed entry for a wallet, oldest first.
func (s *Store) LedgerEntries(walletID uuid.UUID) []domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LedgerEntry(nil), s.ledger[walletID]...)
}

// OutboxEvents returns every committed outbox event in staging order.
func (s *Store) OutboxEvents() []domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OutboxEvent, 0, len(s.outbox))
	for _, r := range s.outbox {
		out = append(out, r.event)
	}
	return out
}

// AuditLogs returns every persisted audit log.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditLog(nil), s.audit...)
}

func copyOrder(o domain.Order) domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
}
