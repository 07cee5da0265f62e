package memory

import (
	"context"
	"fmt"
	"sort"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	s *Store
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(s *Store) *OrderRepo {
	return &OrderRepo{s: s}
}

func orderKey(id uuid.UUID) string { return "order:" + id.String() }

// Create stages a new order with its lines; it becomes visible on commit.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	r.s.mu.RLock()
	_, exists := r.s.orders[o.ID]
	r.s.mu.RUnlock()
	if exists {
		return fmt.Errorf("insert order: %s already exists", o.ID)
	}
	if err := mt.lock(ctx, orderKey(o.ID)); err != nil {
		return err
	}
	mt.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

// GetByIDForUpdate locks the order row for the rest of tx.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return nil, err
	}
	if err := mt.lock(ctx, orderKey(id)); err != nil {
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	if o, ok := mt.orders[id]; ok {
		o = copyOrder(o)
		return &o, nil
	}

	r.s.mu.RLock()
	o, ok := r.s.orders[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	mt.orders[id] = copyOrder(o)
	o = copyOrder(o)
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	r.s.mu.RLock()
	out := make([]domain.Order, 0)
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus writes the order header (status, timestamps, delivery address).
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	current, err := r.GetByIDForUpdate(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("order not found: %s", o.ID)
	}
	mt, _ := r.s.txOf(tx)
	current.Status = o.Status
	current.UpdatedAt = o.UpdatedAt
	current.PaidAt = o.PaidAt
	current.DeliveryAddressID = o.DeliveryAddressID
	mt.orders[o.ID] = *current
	return nil
}
