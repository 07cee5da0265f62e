package handler

import (
	"marketplace-settlement/internal/adapter/http/middleware"
	"marketplace-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	CartSvc        ports.CartService
	OrderSvc       ports.OrderService
	SettlementSvc  ports.SettlementService
	TokenSvc       ports.TokenService
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if !ok || deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	// Audit runs after the handler, so it sits behind auth to see the principal.
	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	if deps.AuditSvc != nil {
		v1.Use(middleware.AuditLog(deps.AuditSvc))
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl(middleware.GroupWalletWrite), walletHandler.Create)
		wallets.GET("/me", rl(middleware.GroupWalletRead), walletHandler.Get)
		wallets.GET("/me/entries", rl(middleware.GroupWalletRead), walletHandler.ListEntries)
		wallets.POST("/me/deposit", rl(middleware.GroupWalletWrite), walletHandler.Deposit)
		wallets.POST("/me/transfer", rl(middleware.GroupWalletWrite), walletHandler.Transfer)
		wallets.PUT("/me/pin", rl(middleware.GroupWalletWrite), walletHandler.ChangePin)
	}

	cartHandler := NewCartHandler(deps.CartSvc)
	cart := v1.Group("/cart", rl(middleware.GroupCart))
	{
		cart.GET("", cartHandler.Get)
		cart.POST("/items", cartHandler.AddItem)
		cart.DELETE("/items/:productId", cartHandler.RemoveItem)
	}

	orderHandler := NewOrderHandler(deps.OrderSvc, deps.SettlementSvc)
	orders := v1.Group("/orders")
	{
		orders.POST("", rl(middleware.GroupOrders), orderHandler.Create)
		orders.GET("", rl(middleware.GroupOrders), orderHandler.List)
		orders.GET("/:id", rl(middleware.GroupOrders), orderHandler.Get)
		orders.POST("/:id/pay", rl(middleware.GroupOrderPay), orderHandler.Pay)
		orders.POST("/:id/cancel", rl(middleware.GroupOrders), orderHandler.Cancel)
		orders.POST("/:id/ship", rl(middleware.GroupFulfilment), orderHandler.Ship)
		orders.POST("/:id/deliver", rl(middleware.GroupFulfilment), orderHandler.Deliver)
	}

	return r
}
