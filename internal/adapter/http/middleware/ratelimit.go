package middleware

import (
	"fmt"
	"strconv"
	"time"

	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups sharing a rate limit.
const (
	GroupWalletRead  = "wallet_read"
	GroupWalletWrite = "wallet_write"
	GroupCart        = "cart"
	GroupOrders      = "orders"
	GroupOrderPay    = "order_pay"
	GroupFulfilment  = "fulfilment"
)

// DefaultRateLimitRules returns the per-group limits applied by the router.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupWalletRead:  {Limit: 120, Window: time.Minute},
		GroupWalletWrite: {Limit: 20, Window: time.Minute},
		GroupCart:        {Limit: 120, Window: time.Minute},
		GroupOrders:      {Limit: 60, Window: time.Minute},
		GroupOrderPay:    {Limit: 10, Window: time.Minute},
		GroupFulfilment:  {Limit: 300, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A nil limiter or a failing check lets the request through.
func RateLimiter(limiter ports.RateLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys limits by user once authenticated, by IP otherwise.
func extractIdentifier(c *gin.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return "user:" + p.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
