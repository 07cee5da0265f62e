package middleware

import (
	"net/http"

	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrBodyTooLarge is returned when a request body exceeds the configured limit.
func ErrBodyTooLarge() *apperror.AppError {
	return apperror.New("REQ_002", apperror.KindInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
}

// MaxBodySize rejects bodies with a declared length over maxBytes and caps
// streamed bodies so binding fails once the limit is crossed.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
