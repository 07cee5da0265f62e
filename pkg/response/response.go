package response

import (
	"errors"
	"net/http"
	"time"

	"marketplace-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request correlation id.
const RequestIDKey = "request_id"

// Meta is carried by every envelope.
type Meta struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta
}

// ErrorResponse carries a stable ErrorKind for clients to branch on and an
// ErrorCode naming the exact failure.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
	Meta
}

// unhandled is reported for any error that is not an *apperror.AppError.
// The cause stays in the logs.
var unhandled = apperror.New("SYS_000", apperror.KindInternal, "Internal server error", http.StatusInternalServerError)

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Data: data, Meta: meta(c)})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Data: data, Meta: meta(c)})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes err as an ErrorResponse using the status of the first
// *apperror.AppError in its chain.
func Error(c *gin.Context, err error) {
	appErr := unhandled
	errors.As(err, &appErr)

	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		ErrorKind: string(appErr.Kind),
		Message:   appErr.Message,
		Meta:      meta(c),
	})
}

// meta stamps the envelope. A request that bypassed the request-id
// middleware gets a fresh id, kept on the context so later writes agree.
func meta(c *gin.Context) Meta {
	id := c.GetString(RequestIDKey)
	if id == "" {
		id = uuid.NewString()
		c.Set(RequestIDKey, id)
	}
	return Meta{RequestID: id, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}
