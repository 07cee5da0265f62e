package service

import (
	"context"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartServiceImpl implements ports.CartService.
type CartServiceImpl struct {
	cartRepo    ports.CartRepository
	productRepo ports.ProductRepository
	log         zerolog.Logger
}

// NewCartService creates a new CartServiceImpl.
func NewCartService(cartRepo ports.CartRepository, productRepo ports.ProductRepository, log zerolog.Logger) *CartServiceImpl {
	return &CartServiceImpl{cartRepo: cartRepo, productRepo: productRepo, log: log}
}

// GetCart returns the caller's cart priced from the live catalog. A user
// who never added anything gets an empty cart.
func (s *CartServiceImpl) GetCart(ctx context.Context, p domain.Principal) (*domain.Cart, error) {
	cart, err := s.cartRepo.Get(ctx, p.UserID)
	if err != nil {
		return nil, storageError("get cart", err)
	}
	if cart == nil {
		cart = &domain.Cart{UserID: p.UserID, Lines: []domain.CartLine{}}
	}
	return cart, nil
}

// AddItem adds qty units of a product, accumulating onto an existing line.
func (s *CartServiceImpl) AddItem(ctx context.Context, p domain.Principal, productID uuid.UUID, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, apperror.ErrInvalidQuantity()
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, storageError("get product", err)
	}
	if product == nil {
		return nil, apperror.ErrNotFound("Product")
	}

	if err := s.cartRepo.AddItem(ctx, p.UserID, productID, qty); err != nil {
		return nil, storageError("add cart item", err)
	}

	s.log.Debug().
		Str("user_id", p.UserID.String()).
		Str("product_id", productID.String()).
		Int("quantity", qty).
		Msg("cart item added")

	return s.GetCart(ctx, p)
}

// RemoveItem drops a product's line from the cart.
func (s *CartServiceImpl) RemoveItem(ctx context.Context, p domain.Principal, productID uuid.UUID) (*domain.Cart, error) {
	removed, err := s.cartRepo.RemoveItem(ctx, p.UserID, productID)
	if err != nil {
		return nil, storageError("remove cart item", err)
	}
	if !removed {
		return nil, apperror.ErrNotFound("Cart item")
	}
	return s.GetCart(ctx, p)
}
