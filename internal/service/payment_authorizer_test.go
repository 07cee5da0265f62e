package service

import (
	"context"
	"testing"

	"marketplace-settlement/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubAuthorizer_Modes(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.PaymentConfig
		amount string
		want   bool
	}{
		{"approve", config.PaymentConfig{Mode: AuthorizerApprove}, "1000000.00", true},
		{"decline", config.PaymentConfig{Mode: AuthorizerDecline}, "0.01", false},
		{"limit under", config.PaymentConfig{Mode: AuthorizerLimit, ApproveLimit: "500.00"}, "499.99", true},
		{"limit equal", config.PaymentConfig{Mode: AuthorizerLimit, ApproveLimit: "500.00"}, "500.00", true},
		{"limit over", config.PaymentConfig{Mode: AuthorizerLimit, ApproveLimit: "500.00"}, "500.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewStubAuthorizer(tt.cfg)
			require.NoError(t, err)

			ok, err := a.Authorize(context.Background(), uuid.New(), dec(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStubAuthorizer_UnknownMode(t *testing.T) {
	_, err := NewStubAuthorizer(config.PaymentConfig{Mode: "sometimes"})
	assert.Error(t, err)
}

func TestStubAuthorizer_CancelledContext(t *testing.T) {
	a, err := NewStubAuthorizer(config.PaymentConfig{Mode: AuthorizerApprove})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := a.Authorize(ctx, uuid.New(), dec("1"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}
