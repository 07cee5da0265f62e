package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	method string
	route  string
}

type auditTarget struct {
	action       domain.AuditAction
	resourceType string
	// param names the route parameter holding the resource id, if any.
	param string
}

// auditRoutes is keyed by route template (c.FullPath()), so ids in the path
// never affect the lookup.
var auditRoutes = map[auditRoute]auditTarget{
	{http.MethodPost, "/api/v1/wallets"}:                 {domain.AuditActionWalletCreate, "wallet", ""},
	{http.MethodPost, "/api/v1/wallets/me/deposit"}:      {domain.AuditActionWalletDeposit, "wallet", ""},
	{http.MethodPost, "/api/v1/wallets/me/transfer"}:     {domain.AuditActionWalletTransfer, "wallet", ""},
	{http.MethodPut, "/api/v1/wallets/me/pin"}:           {domain.AuditActionWalletPinChange, "wallet", ""},
	{http.MethodPost, "/api/v1/cart/items"}:              {domain.AuditActionCartAddItem, "cart", ""},
	{http.MethodDelete, "/api/v1/cart/items/:productId"}: {domain.AuditActionCartRemoveItem, "cart", "productId"},
	{http.MethodPost, "/api/v1/orders"}:                  {domain.AuditActionOrderCreate, "order", ""},
	{http.MethodPost, "/api/v1/orders/:id/cancel"}:       {domain.AuditActionOrderCancel, "order", "id"},
	{http.MethodPost, "/api/v1/orders/:id/pay"}:          {domain.AuditActionOrderPay, "order", "id"},
	{http.MethodPost, "/api/v1/orders/:id/ship"}:         {domain.AuditActionOrderShip, "order", "id"},
	{http.MethodPost, "/api/v1/orders/:id/deliver"}:      {domain.AuditActionOrderDeliver, "order", "id"},
}

// lookupAuditAction resolves the audit tag for a method and route template.
func lookupAuditAction(method, route string) (auditTarget, bool) {
	t, ok := auditRoutes[auditRoute{method: method, route: route}]
	return t, ok
}

// AuditLog records successful state-changing requests through auditSvc.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		target, ok := lookupAuditAction(c.Request.Method, c.FullPath())
		if !ok {
			return
		}

		var userID *uuid.UUID
		if p, ok := PrincipalFrom(c); ok {
			id := p.UserID
			userID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     status,
			"request_id": c.GetString(response.RequestIDKey),
		})

		var resourceID string
		if target.param != "" {
			resourceID = c.Param(target.param)
		}

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       target.action,
			ResourceType: target.resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}
