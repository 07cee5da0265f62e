package memory

import (
	"context"
	"fmt"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartRepo implements ports.CartRepository.
type CartRepo struct {
	s *Store
}

// NewCartRepo creates a new CartRepo.
func NewCartRepo(s *Store) *CartRepo {
	return &CartRepo{s: s}
}

// Get joins cart items with live catalog data. Items whose product has
// disappeared are skipped.
func (r *CartRepo) Get(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
	for _, it := range r.s.carts[userID] {
		p, ok := r.s.products[it.productID]
		if !ok {
			continue
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: p.ID,
			Title:     p.Title,
			UnitPrice: p.Price,
			Quantity:  it.quantity,
		})
	}
	return cart, nil
}

// AddItem accumulates quantity for an existing line.
func (r *CartRepo) AddItem(_ context.Context, userID, productID uuid.UUID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[productID]; !ok {
		return fmt.Errorf("add cart item: unknown product %s", productID)
	}
	items := r.s.carts[userID]
	for i := range items {
		if items[i].productID == productID {
			items[i].quantity += qty
			return nil
		}
	}
	r.s.carts[userID] = append(items, cartItem{productID: productID, quantity: qty})
	return nil
}

func (r *CartRepo) RemoveItem(_ context.Context, userID, productID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[userID]
	for i := range items {
		if items[i].productID == productID {
			r.s.carts[userID] = append(items[:i:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Clear empties the cart when tx commits.
func (r *CartRepo) Clear(_ context.Context, tx pgx.Tx, userID uuid.UUID) error {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	mt.later(func(s *Store) {
		delete(s.carts, userID)
	})
	return nil
}
