package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-checkable class of a failure. Callers branch on Kind,
// never on Message.
type Kind string

const (
	KindNotFound               Kind = "NOT_FOUND"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindUnauthenticated        Kind = "UNAUTHENTICATED"
	KindInvalidInput           Kind = "INVALID_INPUT"
	KindInvalidPin             Kind = "INVALID_PIN"
	KindInsufficientFunds      Kind = "INSUFFICIENT_FUNDS"
	KindInsufficientStock      Kind = "INSUFFICIENT_STOCK"
	KindAlreadyExists          Kind = "ALREADY_EXISTS"
	KindNotCancelable          Kind = "NOT_CANCELABLE"
	KindInvalidState           Kind = "INVALID_STATE"
	KindUpstreamPaymentFailure Kind = "UPSTREAM_PAYMENT_FAILURE"
	KindRateLimited            Kind = "RATE_LIMITED"
	KindUnavailable            Kind = "UNAVAILABLE"
	KindInternal               Kind = "INTERNAL"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"error_kind"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Wallet (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", KindInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidPin() *AppError {
	return New("WAL_002", KindInvalidPin, "Invalid PIN", http.StatusForbidden)
}

func ErrWalletExists() *AppError {
	return New("WAL_003", KindAlreadyExists, "Wallet already exists for this user", http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_004", KindInvalidInput, "Amount must be positive with at most two decimal places", http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("WAL_005", KindInvalidInput, "Cannot transfer to the same wallet", http.StatusBadRequest)
}

func ErrInvalidPinFormat() *AppError {
	return New("WAL_006", KindInvalidInput, "PIN must be exactly 4 digits", http.StatusBadRequest)
}

// ---- Inventory (INV) ----

func ErrInsufficientStock() *AppError {
	return New("INV_001", KindInsufficientStock, "Insufficient stock", http.StatusConflict)
}

func ErrInvalidQuantity() *AppError {
	return New("INV_002", KindInvalidInput, "Quantity must be at least 1", http.StatusBadRequest)
}

// ---- Orders & settlement (ORD) ----

func ErrCartEmpty() *AppError {
	return New("ORD_001", KindInvalidInput, "Cart is empty", http.StatusBadRequest)
}

func ErrNotCancelable() *AppError {
	return New("ORD_002", KindNotCancelable, "Order can only be cancelled while pending", http.StatusConflict)
}

func ErrAddressRequired() *AppError {
	return New("ORD_003", KindInvalidInput, "Delivery address is required", http.StatusBadRequest)
}

func ErrNoAddressOnFile() *AppError {
	return New("ORD_004", KindInvalidInput, "No delivery address on file", http.StatusBadRequest)
}

func ErrOrderNotPending() *AppError {
	return New("ORD_005", KindInvalidState, "Order is not awaiting payment", http.StatusConflict)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("ORD_006", KindInvalidState, fmt.Sprintf("Cannot move order from %s to %s", from, to), http.StatusConflict)
}

// ---- Payment gateway (PAY) ----

func ErrPaymentDeclined(err error) *AppError {
	return Wrap("PAY_001", KindUpstreamPaymentFailure, "Payment was declined", http.StatusPaymentRequired, err)
}

// ---- Authentication (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", KindUnauthorized, "Not allowed to act on this resource", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", KindUnauthenticated, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", KindInternal, "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", KindUnavailable, "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns an INVALID_INPUT error with a caller-facing message.
func Validation(message string) *AppError {
	return New("REQ_001", KindInvalidInput, message, http.StatusBadRequest)
}
