package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrCartEmpty is returned when an order is built from a cart with no lines.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped},
	OrderStatusShipped: {OrderStatusDelivered},
}

// OrderLine is a product/quantity row whose unit price was captured when
// the order was created.
type OrderLine struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Amount is UnitPrice * Quantity.
func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a snapshot of a cart moving through the order lifecycle.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	Status            OrderStatus     `json:"status"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	DeliveryAddressID *uuid.UUID      `json:"delivery_address_id,omitempty"`
	Lines             []OrderLine     `json:"lines"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
}

// NewOrderFromCart snapshots the cart into a PENDING order. The cart is not
// modified.
func NewOrderFromCart(cart *Cart, now time.Time) (*Order, error) {
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	o := &Order{
		ID:        uuid.New(),
		UserID:    cart.UserID,
		Status:    OrderStatusPending,
		Lines:     make([]OrderLine, 0, len(cart.Lines)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, cl := range cart.Lines {
		o.Lines = append(o.Lines, OrderLine{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: cl.ProductID,
			Title:     cl.Title,
			Quantity:  cl.Quantity,
			UnitPrice: cl.UnitPrice,
		})
	}
	o.TotalPrice = o.Total()
	return o, nil
}

// Total sums the line amounts.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

// OwnedBy reports whether the order belongs to userID.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// IsTerminal returns true for DELIVERED and CANCELLED.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// CanTransition reports whether the state machine allows moving to next.
func (o *Order) CanTransition(next OrderStatus) bool {
	for _, s := range orderTransitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to next, stamping PaidAt on payment.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !o.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	if next == OrderStatusPaid {
		o.PaidAt = &at
	}
	return nil
}
