package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	accountNumberAttempts = 5
	gatewayCounterparty   = "payment-gateway"

	defaultPageSize = 20
	maxPageSize     = 100
)

var accountNumberSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(domain.AccountNumberLength), nil)

func generateAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberSpace)
	if err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}
	return fmt.Sprintf("%0*d", domain.AccountNumberLength, n.Int64()), nil
}

// WalletServiceImpl implements ports.WalletService and ports.LedgerPoster.
type WalletServiceImpl struct {
	transactor ports.DBTransactor
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	hashSvc    ports.HashService
	authorizer ports.PaymentAuthorizer
	events     eventStager
	notifier   ports.OutboxNotifier
	log        zerolog.Logger

	newAccountNumber func() (string, error)
}

// NewWalletService creates a new WalletServiceImpl. notifier may be nil.
func NewWalletService(
	transactor ports.DBTransactor,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	outboxRepo ports.OutboxRepository,
	hashSvc ports.HashService,
	authorizer ports.PaymentAuthorizer,
	notifier ports.OutboxNotifier,
	topics config.TopicsConfig,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		transactor:       transactor,
		walletRepo:       walletRepo,
		ledgerRepo:       ledgerRepo,
		hashSvc:          hashSvc,
		authorizer:       authorizer,
		events:           eventStager{outbox: outboxRepo, topics: topics},
		notifier:         notifier,
		log:              log,
		newAccountNumber: generateAccountNumber,
	}
}

// CreateWallet opens the caller's wallet with a zero balance. A second
// wallet for the same owner is rejected.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, p domain.Principal, pin string) (*domain.Wallet, error) {
	if !domain.ValidPin(pin) {
		return nil, apperror.ErrInvalidPinFormat()
	}

	existing, err := s.walletRepo.GetByOwnerID(ctx, p.UserID)
	if err != nil {
		return nil, storageError("check existing wallet", err)
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	pinHash, err := s.hashSvc.Hash(pin)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}

	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := s.newAccountNumber()
		if err != nil {
			return nil, apperror.InternalError(err)
		}

		taken, err := s.walletRepo.ExistsByAccountNumber(ctx, number)
		if err != nil {
			return nil, storageError("check account number", err)
		}
		if taken {
			continue
		}

		now := time.Now().UTC()
		wallet := &domain.Wallet{
			ID:            uuid.New(),
			AccountNumber: number,
			OwnerID:       p.UserID,
			Balance:       decimal.Zero,
			PinHash:       pinHash,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.walletRepo.Create(ctx, wallet)
		if err == nil {
			s.log.Info().
				Str("wallet_id", wallet.ID.String()).
				Str("owner_id", p.UserID.String()).
				Msg("wallet created")
			return wallet, nil
		}
		if !errors.Is(err, ports.ErrDuplicateKey) {
			return nil, storageError("create wallet", err)
		}

		// Lost a race: either the owner got a wallet meanwhile or the number was taken.
		existing, err = s.walletRepo.GetByOwnerID(ctx, p.UserID)
		if err != nil {
			return nil, storageError("check existing wallet", err)
		}
		if existing != nil {
			return nil, apperror.ErrWalletExists()
		}
	}

	return nil, apperror.InternalError(fmt.Errorf("no free account number after %d attempts", accountNumberAttempts))
}

// GetWallet returns the caller's wallet.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, p domain.Principal) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, p.UserID)
	if err != nil {
		return nil, storageError("get wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}

// Deposit funds the caller's wallet through the payment gateway. A decline
// leaves the wallet untouched.
func (s *WalletServiceImpl) Deposit(ctx context.Context, p domain.Principal, req ports.DepositRequest) (*domain.Wallet, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.GetWallet(ctx, p)
	if err != nil {
		return nil, err
	}

	approved, err := s.authorizer.Authorize(ctx, p.UserID, req.Amount)
	if err != nil {
		return nil, apperror.ErrPaymentDeclined(fmt.Errorf("authorize deposit: %w", err))
	}
	if !approved {
		return nil, apperror.ErrPaymentDeclined(nil)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	updated, _, err := s.post(ctx, dbTx, wallet.ID, req.Amount, domain.DirectionCredit, domain.Posting{
		Kind:         domain.LedgerKindDeposit,
		Counterparty: gatewayCounterparty,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.events.stage(ctx, dbTx, now,
		domain.WalletNotification{
			OwnerID:       wallet.OwnerID,
			AccountNumber: wallet.AccountNumber,
			Kind:          domain.LedgerKindDeposit,
			Subject:       "Deposit received",
			Message:       fmt.Sprintf("%s was added to your wallet. New balance: %s", req.Amount.StringFixed(2), updated.Balance.StringFixed(2)),
		},
		domain.TransactionAudit{
			Kind:       domain.LedgerKindDeposit,
			ToAccount:  wallet.AccountNumber,
			Amount:     req.Amount,
			Reference:  gatewayCounterparty,
			OccurredAt: now,
		},
	)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}
	notify(s.notifier)

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Str("kind", string(domain.LedgerKindDeposit)).
		Msg("deposit credited")

	return updated, nil
}

// Transfer moves money from the caller's wallet to the wallet holding
// req.ToAccount after checking the caller's PIN. Both legs commit together.
func (s *WalletServiceImpl) Transfer(ctx context.Context, p domain.Principal, req ports.TransferRequest) (*domain.LedgerEntry, error) {
	if !domain.ValidPin(req.Pin) {
		return nil, apperror.ErrInvalidPinFormat()
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	sender, err := s.GetWallet(ctx, p)
	if err != nil {
		return nil, err
	}
	if sender.AccountNumber == req.ToAccount {
		return nil, apperror.ErrSelfTransfer()
	}
	// PIN first: a caller without it must not learn whether ToAccount exists.
	if err := s.verifyPin(req.Pin, sender); err != nil {
		return nil, err
	}

	recipient, err := s.walletRepo.GetByAccountNumber(ctx, req.ToAccount)
	if err != nil {
		return nil, storageError("get recipient wallet", err)
	}
	if recipient == nil {
		return nil, apperror.ErrNotFound("Recipient wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := s.LockWallets(ctx, dbTx, sender.ID, recipient.ID)
	if err != nil {
		return nil, err
	}

	// A PIN change that committed after the check above invalidates it.
	if locked[sender.ID].PinHash != sender.PinHash {
		return nil, apperror.ErrInvalidPin()
	}

	reference := uuid.NewString()
	_, debitEntry, err := s.post(ctx, dbTx, sender.ID, req.Amount, domain.DirectionDebit, domain.Posting{
		Kind:         domain.LedgerKindTransfer,
		Counterparty: recipient.AccountNumber,
		Reference:    reference,
	})
	if err != nil {
		return nil, err
	}
	_, creditEntry, err := s.post(ctx, dbTx, recipient.ID, req.Amount, domain.DirectionCredit, domain.Posting{
		Kind:         domain.LedgerKindTransfer,
		Counterparty: sender.AccountNumber,
		Reference:    reference,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	amount := req.Amount.StringFixed(2)
	err = s.events.stage(ctx, dbTx, now,
		domain.WalletNotification{
			OwnerID:       sender.OwnerID,
			AccountNumber: sender.AccountNumber,
			Kind:          domain.LedgerKindTransfer,
			Subject:       "Transfer sent",
			Message:       fmt.Sprintf("You sent %s to account %s. New balance: %s", amount, recipient.AccountNumber, debitEntry.BalanceAfter.StringFixed(2)),
		},
		domain.WalletNotification{
			OwnerID:       recipient.OwnerID,
			AccountNumber: recipient.AccountNumber,
			Kind:          domain.LedgerKindTransfer,
			Subject:       "Transfer received",
			Message:       fmt.Sprintf("You received %s from account %s. New balance: %s", amount, sender.AccountNumber, creditEntry.BalanceAfter.StringFixed(2)),
		},
		domain.TransactionAudit{
			Kind:        domain.LedgerKindTransfer,
			FromAccount: sender.AccountNumber,
			ToAccount:   recipient.AccountNumber,
			Amount:      req.Amount,
			Reference:   reference,
			OccurredAt:  now,
		},
	)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}
	notify(s.notifier)

	s.log.Info().
		Str("from_wallet", sender.ID.String()).
		Str("to_wallet", recipient.ID.String()).
		Str("amount", amount).
		Str("reference", reference).
		Msg("transfer completed")

	return debitEntry, nil
}

// ChangePin replaces the stored PIN hash once oldPin checks out.
func (s *WalletServiceImpl) ChangePin(ctx context.Context, p domain.Principal, oldPin, newPin string) error {
	if !domain.ValidPin(oldPin) || !domain.ValidPin(newPin) {
		return apperror.ErrInvalidPinFormat()
	}

	wallet, err := s.GetWallet(ctx, p)
	if err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, wallet.ID)
	if err != nil {
		return storageError("lock wallet", err)
	}
	if locked == nil {
		return apperror.ErrNotFound("Wallet")
	}
	if err := s.verifyPin(oldPin, locked); err != nil {
		return err
	}

	newHash, err := s.hashSvc.Hash(newPin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}
	if err := s.walletRepo.UpdatePinHash(ctx, dbTx, locked.ID, newHash); err != nil {
		return storageError("update pin", err)
	}

	now := time.Now().UTC()
	err = s.ledgerRepo.Append(ctx, dbTx, &domain.LedgerEntry{
		ID:           uuid.New(),
		WalletID:     locked.ID,
		Kind:         domain.LedgerKindPinChange,
		Direction:    domain.DirectionNone,
		Amount:       decimal.Zero,
		BalanceAfter: locked.Balance,
		CreatedAt:    now,
	})
	if err != nil {
		return storageError("append ledger entry", err)
	}

	err = s.events.stage(ctx, dbTx, now,
		domain.WalletNotification{
			OwnerID:       locked.OwnerID,
			AccountNumber: locked.AccountNumber,
			Kind:          domain.LedgerKindPinChange,
			Subject:       "Wallet PIN changed",
			Message:       "The PIN of your wallet was changed. Contact support if this was not you.",
		},
		domain.TransactionAudit{
			Kind:        domain.LedgerKindPinChange,
			FromAccount: locked.AccountNumber,
			Amount:      decimal.Zero,
			OccurredAt:  now,
		},
	)
	if err != nil {
		return apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return storageError("commit tx", err)
	}
	notify(s.notifier)

	s.log.Info().Str("wallet_id", locked.ID.String()).Msg("wallet pin changed")
	return nil
}

// ListEntries returns a page of the caller's ledger, newest first.
func (s *WalletServiceImpl) ListEntries(ctx context.Context, p domain.Principal, page, pageSize int) (*ports.LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	wallet, err := s.GetWallet(ctx, p)
	if err != nil {
		return nil, err
	}

	entries, total, err := s.ledgerRepo.ListByWallet(ctx, wallet.ID, page, pageSize)
	if err != nil {
		return nil, storageError("list ledger entries", err)
	}

	return &ports.LedgerPage{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Debit implements ports.LedgerPoster.
func (s *WalletServiceImpl) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, posting domain.Posting) (*domain.Wallet, error) {
	wallet, _, err := s.post(ctx, tx, walletID, amount, domain.DirectionDebit, posting)
	return wallet, err
}

// Credit implements ports.LedgerPoster.
func (s *WalletServiceImpl) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, posting domain.Posting) (*domain.Wallet, error) {
	wallet, _, err := s.post(ctx, tx, walletID, amount, domain.DirectionCredit, posting)
	return wallet, err
}

// LockWallets implements ports.LedgerPoster. Duplicate ids are locked once.
func (s *WalletServiceImpl) LockWallets(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	ordered := sortedUniqueIDs(ids)

	locked := make(map[uuid.UUID]*domain.Wallet, len(ordered))
	for _, id := range ordered {
		wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, storageError("lock wallet", err)
		}
		if wallet == nil {
			return nil, apperror.ErrNotFound("Wallet")
		}
		locked[id] = wallet
	}
	return locked, nil
}

// post applies one balance change and its ledger entry inside tx. The
// wallet row is (re)locked, so the balance read here is current.
func (s *WalletServiceImpl) post(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount decimal.Decimal, dir domain.Direction, posting domain.Posting) (*domain.Wallet, *domain.LedgerEntry, error) {
	if !domain.ValidAmount(amount) {
		return nil, nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, nil, storageError("lock wallet", err)
	}
	if wallet == nil {
		return nil, nil, apperror.ErrNotFound("Wallet")
	}

	var balance decimal.Decimal
	switch dir {
	case domain.DirectionDebit:
		if !wallet.CanDebit(amount) {
			return nil, nil, apperror.ErrInsufficientFunds()
		}
		balance = wallet.Balance.Sub(amount)
	case domain.DirectionCredit:
		balance = wallet.Balance.Add(amount)
	default:
		return nil, nil, apperror.InternalError(fmt.Errorf("post: unsupported direction %q", dir))
	}

	if err := s.walletRepo.UpdateBalance(ctx, tx, walletID, balance); err != nil {
		return nil, nil, storageError("update balance", err)
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         posting.Kind,
		Direction:    dir,
		Amount:       amount,
		BalanceAfter: balance,
		Counterparty: posting.Counterparty,
		Reference:    posting.Reference,
		CreatedAt:    now,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, nil, storageError("append ledger entry", err)
	}

	wallet.Balance = balance
	wallet.UpdatedAt = now
	return wallet, entry, nil
}

func (s *WalletServiceImpl) verifyPin(pin string, wallet *domain.Wallet) error {
	ok, err := s.hashSvc.Verify(pin, wallet.PinHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}
	if !ok {
		return apperror.ErrInvalidPin()
	}
	return nil
}

// sortedUniqueIDs returns ids in ascending byte order, the order every unit
// of work takes row locks in.
func sortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
