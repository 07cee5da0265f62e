package memory

import (
	"context"
	"fmt"
	"sort"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	s *Store
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(s *Store) *WalletRepo {
	return &WalletRepo{s: s}
}

func walletKey(id uuid.UUID) string { return "wallet:" + id.String() }

// Create inserts a wallet, enforcing one wallet per owner and unique account numbers.
func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.walletByOwner[w.OwnerID]; ok {
		return fmt.Errorf("insert wallet: owner %s: %w", w.OwnerID, ports.ErrDuplicateKey)
	}
	if _, ok := r.s.walletByAccount[w.AccountNumber]; ok {
		return fmt.Errorf("insert wallet: account %s: %w", w.AccountNumber, ports.ErrDuplicateKey)
	}
	r.s.wallets[w.ID] = *w
	r.s.walletByOwner[w.OwnerID] = w.ID
	r.s.walletByAccount[w.AccountNumber] = w.ID
	return nil
}

func (r *WalletRepo) GetByOwnerID(_ context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.walletByOwner[ownerID]
	if !ok {
		return nil, nil
	}
	w := r.s.wallets[id]
	return &w, nil
}

func (r *WalletRepo) GetByAccountNumber(_ context.Context, accountNumber string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.walletByAccount[accountNumber]
	if !ok {
		return nil, nil
	}
	w := r.s.wallets[id]
	return &w, nil
}

func (r *WalletRepo) ExistsByAccountNumber(_ context.Context, accountNumber string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.walletByAccount[accountNumber]
	return ok, nil
}

// GetByIDForUpdate locks the wallet row for the rest of tx.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return nil, err
	}
	if err := mt.lock(ctx, walletKey(id)); err != nil {
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	if w, ok := mt.wallets[id]; ok {
		return &w, nil
	}

	r.s.mu.RLock()
	w, ok := r.s.wallets[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	mt.wallets[id] = w
	return &w, nil
}

func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	w, err := r.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	if balance.IsNegative() {
		return fmt.Errorf("update wallet balance: negative balance for %s", walletID)
	}
	mt, _ := r.s.txOf(tx)
	w.Balance = balance
	mt.wallets[walletID] = *w
	return nil
}

func (r *WalletRepo) UpdatePinHash(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, pinHash string) error {
	w, err := r.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	mt, _ := r.s.txOf(tx)
	w.PinHash = pinHash
	mt.wallets[walletID] = *w
	return nil
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	s *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(s *Store) *LedgerRepo {
	return &LedgerRepo{s: s}
}

func (r *LedgerRepo) Append(_ context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	e := *entry
	mt.later(func(s *Store) {
		s.ledger[e.WalletID] = append(s.ledger[e.WalletID], e)
	})
	return nil
}

// ListByWallet returns a page of entries, newest first.
func (r *LedgerRepo) ListByWallet(_ context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.RLock()
	all := append([]domain.LedgerEntry(nil), r.s.ledger[walletID]...)
	r.s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}
