package handler

import (
	"context"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles order lifecycle endpoints, including settlement.
type OrderHandler struct {
	orderSvc      ports.OrderService
	settlementSvc ports.SettlementService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService, settlementSvc ports.SettlementService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, settlementSvc: settlementSvc}
}

// Create handles POST /api/v1/orders. The order is a snapshot of the cart.
func (h *OrderHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.CreateFromCart(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewOrderResponse(order))
}

// List handles GET /api/v1/orders.
func (h *OrderHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := h.orderSvc.ListOrders(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, dto.NewOrderResponse(&orders[i]))
	}
	response.OK(c, items)
}

// Get handles GET /api/v1/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	h.act(c, h.orderSvc.GetOrder)
}

// Pay handles POST /api/v1/orders/:id/pay. The body is optional.
func (h *OrderHandler) Pay(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.PayOrderRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	settle := ports.SettleRequest{OrderID: orderID}
	if req.AddressID != nil {
		if addressID, err := uuid.Parse(*req.AddressID); err == nil {
			settle.AddressID = &addressID
		} else {
			settle.MalformedAddress = true
		}
	}

	order, err := h.settlementSvc.Settle(c.Request.Context(), p, settle)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewOrderResponse(order))
}

// Cancel handles POST /api/v1/orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.act(c, h.orderSvc.Cancel)
}

// Ship handles POST /api/v1/orders/:id/ship (operators only).
func (h *OrderHandler) Ship(c *gin.Context) {
	h.act(c, h.orderSvc.Ship)
}

// Deliver handles POST /api/v1/orders/:id/deliver (operators only).
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.act(c, h.orderSvc.Deliver)
}

type orderAction func(ctx context.Context, p domain.Principal, orderID uuid.UUID) (*domain.Order, error)

// act runs an order operation addressed by the :id path parameter.
func (h *OrderHandler) act(c *gin.Context, fn orderAction) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := fn(c.Request.Context(), p, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewOrderResponse(order))
}
