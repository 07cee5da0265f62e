package service

import (
	"context"
	"fmt"

	"marketplace-settlement/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Authorizer modes.
const (
	AuthorizerApprove = "approve"
	AuthorizerDecline = "decline"
	AuthorizerLimit   = "limit"
)

// StubAuthorizer is a deterministic stand-in for the external payment
// gateway.
type StubAuthorizer struct {
	mode  string
	limit decimal.Decimal
}

// NewStubAuthorizer builds an authorizer from the payment config.
func NewStubAuthorizer(cfg config.PaymentConfig) (*StubAuthorizer, error) {
	limit, err := cfg.Limit()
	if err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case AuthorizerApprove, AuthorizerDecline, AuthorizerLimit:
	default:
		return nil, fmt.Errorf("unknown payment mode %q", cfg.Mode)
	}
	return &StubAuthorizer{mode: cfg.Mode, limit: limit}, nil
}

// Authorize implements ports.PaymentAuthorizer.
func (a *StubAuthorizer) Authorize(ctx context.Context, _ uuid.UUID, amount decimal.Decimal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch a.mode {
	case AuthorizerApprove:
		return true, nil
	case AuthorizerLimit:
		return amount.LessThanOrEqual(a.limit), nil
	default:
		return false, nil
	}
}
