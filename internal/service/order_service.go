package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderServiceImpl implements ports.OrderService. Payment is handled by
// SettlementServiceImpl; this service never moves an order to PAID.
type OrderServiceImpl struct {
	transactor ports.DBTransactor
	orderRepo  ports.OrderRepository
	cartRepo   ports.CartRepository
	log        zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	transactor ports.DBTransactor,
	orderRepo ports.OrderRepository,
	cartRepo ports.CartRepository,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		transactor: transactor,
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		log:        log,
	}
}

// CreateFromCart snapshots the caller's cart into a PENDING order. The cart
// itself is left alone until the order is paid.
func (s *OrderServiceImpl) CreateFromCart(ctx context.Context, p domain.Principal) (*domain.Order, error) {
	cart, err := s.cartRepo.Get(ctx, p.UserID)
	if err != nil {
		return nil, storageError("get cart", err)
	}
	if cart == nil {
		cart = &domain.Cart{UserID: p.UserID}
	}

	order, err := domain.NewOrderFromCart(cart, time.Now().UTC())
	if errors.Is(err, domain.ErrCartEmpty) {
		return nil, apperror.ErrCartEmpty()
	}
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		return nil, storageError("create order", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", p.UserID.String()).
		Int("lines", len(order.Lines)).
		Str("total", order.TotalPrice.StringFixed(2)).
		Msg("order created")

	return order, nil
}

// GetOrder returns one order. Operators may read any order.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, storageError("get order", err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if !order.OwnedBy(p.UserID) && !p.IsOperator() {
		return nil, apperror.ErrUnauthorized()
	}
	return order, nil
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, storageError("list orders", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// Cancel moves a PENDING order owned by the caller to CANCELLED. The order
// row is locked, so it cannot race a settlement of the same order.
func (s *OrderServiceImpl) Cancel(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusCancelled, func(o *domain.Order) error {
		if !o.OwnedBy(p.UserID) {
			return apperror.ErrUnauthorized()
		}
		if o.Status != domain.OrderStatusPending {
			return apperror.ErrNotCancelable()
		}
		return nil
	})
}

// Ship moves a PAID order to SHIPPED. Operator only.
func (s *OrderServiceImpl) Ship(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error) {
	if !p.IsOperator() {
		return nil, apperror.ErrUnauthorized()
	}
	return s.transition(ctx, orderID, domain.OrderStatusShipped, nil)
}

// Deliver moves a SHIPPED order to DELIVERED. Operator only.
func (s *OrderServiceImpl) Deliver(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error) {
	if !p.IsOperator() {
		return nil, apperror.ErrUnauthorized()
	}
	return s.transition(ctx, orderID, domain.OrderStatusDelivered, nil)
}

// transition locks the order, runs check, applies the state machine and
// persists the new status in one unit of work.
func (s *OrderServiceImpl) transition(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus, check func(*domain.Order) error) (*domain.Order, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return nil, storageError("lock order", err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if check != nil {
		if err := check(order); err != nil {
			return nil, err
		}
	}

	from := order.Status
	if err := order.TransitionTo(next, time.Now().UTC()); err != nil {
		return nil, apperror.ErrInvalidTransition(string(from), string(next))
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, order); err != nil {
		return nil, storageError("update order status", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError(fmt.Sprintf("commit %s", next), err)
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("order status changed")

	return order, nil
}
