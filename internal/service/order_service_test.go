package service

import (
	"context"
	"errors"
	"testing"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/core/ports/mocks"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func operator() domain.Principal {
	return domain.Principal{UserID: uuid.New(), Role: domain.RoleOperator}
}

// ==================== CreateFromCart ====================

func TestOrder_CreateFromCart_SnapshotsPrices(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()

	chair := m.product(seller, "Chair", "49.99", 10)
	table := m.product(seller, "Table", "150.00", 2)

	_, err := m.carts.AddItem(ctx, customer(buyer), chair.ID, 4)
	require.NoError(t, err)
	_, err = m.carts.AddItem(ctx, customer(buyer), table.ID, 1)
	require.NoError(t, err)

	order, err := m.orders.CreateFromCart(ctx, customer(buyer))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, buyer, order.UserID)
	assert.Len(t, order.Lines, 2)
	assert.True(t, order.TotalPrice.Equal(dec("349.96")))
	assert.Nil(t, order.PaidAt)

	// Later price changes do not reach the order.
	chair.Price = dec("10.00")
	m.store.PutProduct(chair)

	stored, err := m.orders.GetOrder(ctx, customer(buyer), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalPrice.Equal(dec("349.96")))

	// Cart survives until payment.
	cart, err := m.carts.GetCart(ctx, customer(buyer))
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
}

// Scenario: an empty cart yields CART_EMPTY and no order is created.
func TestOrder_CreateFromCart_EmptyCart(t *testing.T) {
	m := newMarketplace(t)
	buyer := uuid.New()

	_, err := m.orders.CreateFromCart(context.Background(), customer(buyer))
	assertAppError(t, err, "ORD_001")
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	orders, err := m.orders.ListOrders(context.Background(), customer(buyer))
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NotNil(t, orders)
}

func TestOrder_CreateFromCart_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cartRepo := mocks.NewMockCartRepository(ctrl)
	svc := NewOrderService(mocks.NewMockDBTransactor(ctrl), mocks.NewMockOrderRepository(ctrl), cartRepo, newTestLogger())

	cartRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	_, err := svc.CreateFromCart(context.Background(), customer(uuid.New()))
	assertAppError(t, err, "SYS_001")
}

func TestOrder_CreateFromCart_Persists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transactor := mocks.NewMockDBTransactor(ctrl)
	orderRepo := mocks.NewMockOrderRepository(ctrl)
	cartRepo := mocks.NewMockCartRepository(ctrl)
	svc := NewOrderService(transactor, orderRepo, cartRepo, newTestLogger())

	buyer := uuid.New()
	cartRepo.EXPECT().Get(gomock.Any(), buyer).Return(&domain.Cart{
		UserID: buyer,
		Lines:  []domain.CartLine{{ProductID: uuid.New(), Title: "Pen", UnitPrice: dec("1.50"), Quantity: 2}},
	}, nil)
	transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	orderRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, o *domain.Order) error {
			assert.Equal(t, buyer, o.UserID)
			assert.True(t, o.TotalPrice.Equal(dec("3.00")))
			return nil
		},
	)

	order, err := svc.CreateFromCart(context.Background(), customer(buyer))
	require.NoError(t, err)
	assert.Len(t, order.Lines, 1)
}

// ==================== Read ====================

func TestOrder_GetOrder_Authorization(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	buyer := uuid.New()
	item := m.product(uuid.New(), "Item", "1.00", 5)
	order := m.order(t, buyer, map[uuid.UUID]int{item.ID: 1})

	_, err := m.orders.GetOrder(ctx, customer(uuid.New()), order.ID)
	assertAppError(t, err, "AUTH_001")

	got, err := m.orders.GetOrder(ctx, operator(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = m.orders.GetOrder(ctx, customer(buyer), uuid.New())
	assertAppError(t, err, "RES_001")
}

func TestOrder_ListOrders_OnlyOwn(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	item := m.product(uuid.New(), "Item", "1.00", 50)

	m.order(t, alice, map[uuid.UUID]int{item.ID: 1})
	m.order(t, alice, map[uuid.UUID]int{item.ID: 2})
	m.order(t, bob, map[uuid.UUID]int{item.ID: 3})

	orders, err := m.orders.ListOrders(ctx, customer(alice))
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, alice, o.UserID)
	}
}

// ==================== Transitions ====================

func TestOrder_Cancel(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	buyer := uuid.New()
	item := m.product(uuid.New(), "Item", "1.00", 5)
	order := m.order(t, buyer, map[uuid.UUID]int{item.ID: 1})

	_, err := m.orders.Cancel(ctx, customer(uuid.New()), order.ID)
	assertAppError(t, err, "AUTH_001")

	cancelled, err := m.orders.Cancel(ctx, customer(buyer), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	_, err = m.orders.Cancel(ctx, customer(buyer), order.ID)
	assertAppError(t, err, "ORD_002")
	assert.Equal(t, apperror.KindNotCancelable, apperror.KindOf(err))

	_, err = m.orders.Cancel(ctx, customer(buyer), uuid.New())
	assertAppError(t, err, "RES_001")
}

func TestOrder_CancelPaidOrderRejected(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	m.fundedWallet(t, buyer, "10.00")
	m.fundedWallet(t, seller, "0")
	item := m.product(seller, "Item", "1.00", 5)
	addr := m.address(buyer)
	order := m.order(t, buyer, map[uuid.UUID]int{item.ID: 1})

	_, err := m.settlement.Settle(ctx, customer(buyer), ports.SettleRequest{OrderID: order.ID, AddressID: &addr.ID})
	require.NoError(t, err)

	_, err = m.orders.Cancel(ctx, customer(buyer), order.ID)
	assertAppError(t, err, "ORD_002")
}

func TestOrder_ShipAndDeliver(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	m.fundedWallet(t, buyer, "10.00")
	m.fundedWallet(t, seller, "0")
	item := m.product(seller, "Item", "1.00", 5)
	addr := m.address(buyer)
	order := m.order(t, buyer, map[uuid.UUID]int{item.ID: 1})
	op := operator()

	// Not yet paid.
	_, err := m.orders.Ship(ctx, op, order.ID)
	assertAppError(t, err, "ORD_006")

	_, err = m.settlement.Settle(ctx, customer(buyer), ports.SettleRequest{OrderID: order.ID, AddressID: &addr.ID})
	require.NoError(t, err)

	_, err = m.orders.Ship(ctx, customer(buyer), order.ID)
	assertAppError(t, err, "AUTH_001")

	_, err = m.orders.Deliver(ctx, op, order.ID)
	assertAppError(t, err, "ORD_006")

	shipped, err := m.orders.Ship(ctx, op, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)

	_, err = m.orders.Deliver(ctx, customer(buyer), order.ID)
	assertAppError(t, err, "AUTH_001")

	delivered, err := m.orders.Deliver(ctx, op, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, delivered.Status)

	_, err = m.orders.Ship(ctx, op, order.ID)
	assertAppError(t, err, "ORD_006")
}

func TestOrder_Transition_LockTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transactor := mocks.NewMockDBTransactor(ctrl)
	orderRepo := mocks.NewMockOrderRepository(ctrl)
	svc := NewOrderService(transactor, orderRepo, mocks.NewMockCartRepository(ctrl), newTestLogger())

	transactor.EXPECT().Begin(gomock.Any()).Return(&mockTx{}, nil)
	orderRepo.EXPECT().GetByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, ports.ErrLockTimeout)

	_, err := svc.Ship(context.Background(), operator(), uuid.New())
	assertAppError(t, err, "SYS_002")
}
