package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ports.ProductRepository over the catalog's
// products table.
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, owner_id, title, price, stock FROM products WHERE id = $1`

	p := &domain.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// DecrementStock is a single conditional UPDATE: the row lock it takes and
// the stock >= qty predicate are evaluated together, so two settlements can
// never both pass the check on the same units.
func (r *ProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (int, bool, error) {
	query := `UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING stock`

	var remaining int
	err := tx.QueryRow(ctx, query, qty, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, wrapErr("decrement stock", err)
	}
	return remaining, true, nil
}

// AddressRepo implements ports.AddressRepository.
type AddressRepo struct {
	pool Pool
}

// NewAddressRepo creates a new AddressRepo.
func NewAddressRepo(pool Pool) *AddressRepo {
	return &AddressRepo{pool: pool}
}

func (r *AddressRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return n, nil
}

func (r *AddressRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	query := `SELECT id, user_id, recipient, street, city, postal_code, country
		FROM addresses WHERE id = $1`

	a := &domain.Address{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Recipient, &a.Street, &a.City, &a.PostalCode, &a.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address by id: %w", err)
	}
	return a, nil
}
