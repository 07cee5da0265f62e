package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumnList = `id, user_id, status, total_price, delivery_address_id, created_at, updated_at, paid_at`

// querier is what both a pool and a pgx.Tx can run reads on.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OrderRepo implements ports.OrderRepository. Lines are stored in
// order_lines and always loaded with their header.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts the order header and its lines within tx.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	_, err := tx.Exec(ctx, `INSERT INTO orders (`+orderColumnList+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.UserID, o.Status, o.TotalPrice, o.DeliveryAddressID,
		o.CreatedAt, o.UpdatedAt, o.PaidAt,
	)
	if err != nil {
		return wrapErr("insert order", err)
	}

	for i, l := range o.Lines {
		_, err := tx.Exec(ctx, `INSERT INTO order_lines (id, order_id, line_no, product_id, title, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.ID, o.ID, i+1, l.ProductID, l.Title, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return wrapErr("insert order line", err)
		}
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.load(ctx, r.pool, `SELECT `+orderColumnList+` FROM orders WHERE id = $1`, id, "get order by id")
}

// GetByIDForUpdate locks the order header for the rest of tx.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.load(ctx, tx, `SELECT `+orderColumnList+` FROM orders WHERE id = $1 FOR UPDATE`, id, "get order for update")
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumnList+` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.lines(ctx, r.pool, `WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

// UpdateStatus writes the mutable header fields.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `UPDATE orders SET status = $1, delivery_address_id = $2, paid_at = $3, updated_at = $4
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query, o.Status, o.DeliveryAddressID, o.PaidAt, o.UpdatedAt, o.ID)
	if err != nil {
		return wrapErr("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", o.ID)
	}
	return nil
}

func (r *OrderRepo) load(ctx context.Context, q querier, query string, id uuid.UUID, op string) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}

	lines, err := r.lines(ctx, q, `WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

func (r *OrderRepo) lines(ctx context.Context, q querier, where string, arg any) (map[uuid.UUID][]domain.OrderLine, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, title, quantity, unit_price
		FROM order_lines `+where+` ORDER BY order_id, line_no`, arg)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.OrderLine)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Title, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.DeliveryAddressID,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}
