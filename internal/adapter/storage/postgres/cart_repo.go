package postgres

import (
	"context"
	"fmt"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartRepo implements ports.CartRepository. Only product ids and
// quantities are stored; price and title come from the live catalog.
type CartRepo struct {
	pool Pool
}

// NewCartRepo creates a new CartRepo.
func NewCartRepo(pool Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

func (r *CartRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.title, p.price, ci.quantity
		FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.Title, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		cart.Lines = append(cart.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}
	return cart, nil
}

// AddItem inserts a line or adds qty to an existing one.
func (r *CartRepo) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	query := `INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	if _, err := r.pool.Exec(ctx, query, userID, productID, qty); err != nil {
		return wrapErr("add cart item", err)
	}
	return nil
}

func (r *CartRepo) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("remove cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear empties the cart as part of tx.
func (r *CartRepo) Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return wrapErr("clear cart", err)
	}
	return nil
}
