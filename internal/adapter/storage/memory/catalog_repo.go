package memory

import (
	"context"
	"fmt"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ports.ProductRepository.
type ProductRepo struct {
	s *Store
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(s *Store) *ProductRepo {
	return &ProductRepo{s: s}
}

func productKey(id uuid.UUID) string { return "product:" + id.String() }

func (r *ProductRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// DecrementStock locks the product row and subtracts qty only when enough
// stock is on hand.
func (r *ProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (int, bool, error) {
	mt, err := r.s.txOf(tx)
	if err != nil {
		return 0, false, err
	}
	if err := mt.lock(ctx, productKey(id)); err != nil {
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}

	p, ok := mt.products[id]
	if !ok {
		r.s.mu.RLock()
		p, ok = r.s.products[id]
		r.s.mu.RUnlock()
		if !ok {
			return 0, false, nil
		}
	}
	if p.Stock < qty {
		return 0, false, nil
	}
	p.Stock -= qty
	mt.products[id] = p
	return p.Stock, true, nil
}

// AddressRepo implements ports.AddressRepository.
type AddressRepo struct {
	s *Store
}

// NewAddressRepo creates a new AddressRepo.
func NewAddressRepo(s *Store) *AddressRepo {
	return &AddressRepo{s: s}
}

func (r *AddressRepo) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *AddressRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
