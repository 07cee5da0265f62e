package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	userID := uuid.New()
	orderID := uuid.New().String()
	done := make(chan *domain.AuditLog, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, log *domain.AuditLog) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			done <- log
			return nil
		},
	)

	svc.Log(context.Background(), &domain.AuditLog{
		UserID:       &userID,
		Action:       domain.AuditActionOrderPay,
		ResourceType: "order",
		ResourceID:   orderID,
		IPAddress:    "127.0.0.1",
	})

	select {
	case log := <-done:
		assert.Equal(t, domain.AuditActionOrderPay, log.Action)
		assert.Equal(t, orderID, log.ResourceID)
		assert.NotEqual(t, uuid.Nil, log.ID)
		assert.False(t, log.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_OutlivesRequestContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan error, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.AuditLog) error {
			done <- ctx.Err()
			return nil
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Log(ctx, &domain.AuditLog{Action: domain.AuditActionWalletTransfer, ResourceType: "wallet"})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_RepoFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *domain.AuditLog) error {
			close(done)
			return errors.New("disk full")
		},
	)

	svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionCartAddItem, ResourceType: "cart"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit repo not called")
	}
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, newTestLogger())

	// Should not panic
	svc.Log(context.Background(), &domain.AuditLog{
		Action:       domain.AuditActionWalletCreate,
		ResourceType: "wallet",
		IPAddress:    "127.0.0.1",
	})
	svc.Log(context.Background(), nil)

	time.Sleep(50 * time.Millisecond) // let goroutine run
}
