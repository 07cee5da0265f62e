package handler

import (
	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartHandler handles the caller's cart.
type CartHandler struct {
	cartSvc ports.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartSvc ports.CartService) *CartHandler {
	return &CartHandler{cartSvc: cartSvc}
}

// Get handles GET /api/v1/cart.
func (h *CartHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	cart, err := h.cartSvc.GetCart(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewCartResponse(cart))
}

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.Error(c, apperror.Validation("product_id must be a valid UUID"))
		return
	}

	cart, err := h.cartSvc.AddItem(c.Request.Context(), p, productID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/:productId.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	productID, ok := uuidParam(c, "productId")
	if !ok {
		return
	}

	cart, err := h.cartSvc.RemoveItem(c.Request.Context(), p, productID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewCartResponse(cart))
}
