package service

import (
	"context"
	"io"
	"testing"
	"time"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/adapter/storage/memory"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPin = "1234"

var testTopics = config.TopicsConfig{
	InventoryUpdates:    "inventory-updates",
	SellerNotifications: "seller-notifications",
	WalletNotifications: "wallet-notifications",
	TransactionAudit:    "transaction-audit",
}

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func customer(id uuid.UUID) domain.Principal {
	return domain.Principal{UserID: id, Role: domain.RoleCustomer}
}

// marketplace wires every service against one in-memory store, the same
// way cmd/api does with the memory driver.
type marketplace struct {
	store      *memory.Store
	wallets    *WalletServiceImpl
	carts      *CartServiceImpl
	orders     *OrderServiceImpl
	settlement *SettlementServiceImpl
	outbox     *memory.OutboxRepo
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()

	store := memory.NewStore(2 * time.Second)
	walletRepo := memory.NewWalletRepo(store)
	ledgerRepo := memory.NewLedgerRepo(store)
	productRepo := memory.NewProductRepo(store)
	addressRepo := memory.NewAddressRepo(store)
	cartRepo := memory.NewCartRepo(store)
	orderRepo := memory.NewOrderRepo(store)
	outboxRepo := memory.NewOutboxRepo(store)

	authorizer, err := NewStubAuthorizer(config.PaymentConfig{Mode: AuthorizerApprove})
	require.NoError(t, err)

	wallets := NewWalletService(store, walletRepo, ledgerRepo, outboxRepo,
		NewArgon2HashService(testWalletConfig), authorizer, nil, testTopics, newTestLogger())

	return &marketplace{
		store:   store,
		wallets: wallets,
		carts:   NewCartService(cartRepo, productRepo, newTestLogger()),
		orders:  NewOrderService(store, orderRepo, cartRepo, newTestLogger()),
		settlement: NewSettlementService(store, orderRepo, productRepo, addressRepo, cartRepo, walletRepo,
			outboxRepo, wallets, NewInventoryGuard(productRepo), nil, testTopics, newTestLogger()),
		outbox: outboxRepo,
	}
}

// fundedWallet opens a wallet for owner with testPin and deposits balance.
func (m *marketplace) fundedWallet(t *testing.T, owner uuid.UUID, balance string) *domain.Wallet {
	t.Helper()
	ctx := context.Background()

	w, err := m.wallets.CreateWallet(ctx, customer(owner), testPin)
	require.NoError(t, err)
	if amount := dec(balance); amount.IsPositive() {
		w, err = m.wallets.Deposit(ctx, customer(owner), ports.DepositRequest{Amount: amount})
		require.NoError(t, err)
	}
	return w
}

func (m *marketplace) product(seller uuid.UUID, title, price string, stock int) domain.Product {
	p := domain.Product{ID: uuid.New(), OwnerID: seller, Title: title, Price: dec(price), Stock: stock}
	m.store.PutProduct(p)
	return p
}

func (m *marketplace) address(user uuid.UUID) domain.Address {
	a := domain.Address{
		ID:         uuid.New(),
		UserID:     user,
		Recipient:  "Test Buyer",
		Street:     "1 Market St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
	m.store.PutAddress(a)
	return a
}

// order fills the buyer's cart with the given lines and snapshots it.
// The cart is emptied first so consecutive calls build distinct orders.
func (m *marketplace) order(t *testing.T, buyer uuid.UUID, lines map[uuid.UUID]int) *domain.Order {
	t.Helper()
	ctx := context.Background()
	p := customer(buyer)

	cart, err := m.carts.GetCart(ctx, p)
	require.NoError(t, err)
	for _, l := range cart.Lines {
		_, err := m.carts.RemoveItem(ctx, p, l.ProductID)
		require.NoError(t, err)
	}
	for productID, qty := range lines {
		_, err := m.carts.AddItem(ctx, p, productID, qty)
		require.NoError(t, err)
	}

	order, err := m.orders.CreateFromCart(ctx, p)
	require.NoError(t, err)
	return order
}

func (m *marketplace) balance(t *testing.T, owner uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := m.wallets.GetWallet(context.Background(), customer(owner))
	require.NoError(t, err)
	return w.Balance
}

func (m *marketplace) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, ok := m.store.Product(productID)
	require.True(t, ok)
	return p.Stock
}

func (m *marketplace) eventsOfType(eventType string) []domain.OutboxEvent {
	var out []domain.OutboxEvent
	for _, ev := range m.store.OutboxEvents() {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}
