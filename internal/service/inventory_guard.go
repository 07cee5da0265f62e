package service

import (
	"context"

	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InventoryGuardImpl implements ports.InventoryGuard on top of the
// repository's conditional decrement, so the stock check and the write are
// a single statement.
type InventoryGuardImpl struct {
	productRepo ports.ProductRepository
}

// NewInventoryGuard creates a new InventoryGuardImpl.
func NewInventoryGuard(productRepo ports.ProductRepository) *InventoryGuardImpl {
	return &InventoryGuardImpl{productRepo: productRepo}
}

// ReserveStock decrements qty units of productID inside tx and returns the
// remaining stock. Nothing is written when stock is short.
func (g *InventoryGuardImpl) ReserveStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (int, error) {
	if qty < 1 {
		return 0, apperror.ErrInvalidQuantity()
	}

	remaining, ok, err := g.productRepo.DecrementStock(ctx, tx, productID, qty)
	if err != nil {
		return 0, storageError("decrement stock", err)
	}
	if ok {
		return remaining, nil
	}

	// No row matched: tell a missing product apart from short stock.
	product, err := g.productRepo.GetByID(ctx, productID)
	if err != nil {
		return 0, storageError("get product", err)
	}
	if product == nil {
		return 0, apperror.ErrNotFound("Product")
	}
	return 0, apperror.ErrInsufficientStock()
}
