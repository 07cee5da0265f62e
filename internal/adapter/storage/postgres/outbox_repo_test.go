package postgres

import (
	"context"
	"testing"
	"time"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutboxEvent(t *testing.T, at time.Time) *domain.OutboxEvent {
	t.Helper()
	ev, err := domain.NewOutboxEvent("inventory-updates", domain.StockChanged{ProductID: uuid.New(), Delta: -2}, at)
	require.NoError(t, err)
	return ev
}

func TestOutboxRepo_Stage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	ev1, ev2 := newTestOutboxEvent(t, now), newTestOutboxEvent(t, now)

	mock.ExpectBegin()
	for _, ev := range []*domain.OutboxEvent{ev1, ev2} {
		mock.ExpectExec("INSERT INTO outbox_events").
			WithArgs(ev.ID, ev.Topic, ev.Key, ev.EventType, ev.Payload, ev.Attempts,
				ev.LastError, ev.NextAttemptAt, ev.CreatedAt, ev.PublishedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Stage(context.Background(), tx, ev1, ev2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_ClaimPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	lease := now.Add(30 * time.Second)
	older := newTestOutboxEvent(t, now.Add(-time.Minute))
	newer := newTestOutboxEvent(t, now)

	cols := []string{"id", "topic", "event_key", "event_type", "payload", "attempts", "last_error", "next_attempt_at", "created_at", "published_at"}
	rows := pgxmock.NewRows(cols)
	for _, ev := range []*domain.OutboxEvent{newer, older} {
		rows.AddRow(ev.ID, ev.Topic, ev.Key, ev.EventType, ev.Payload, ev.Attempts,
			ev.LastError, lease, ev.CreatedAt, ev.PublishedAt)
	}

	mock.ExpectQuery("UPDATE outbox_events SET next_attempt_at .+ FOR UPDATE SKIP LOCKED").
		WithArgs(now, lease, 10).
		WillReturnRows(rows)

	events, err := repo.ClaimPending(context.Background(), now, lease, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, older.ID, events[0].ID)
	assert.Equal(t, lease, events[1].NextAttemptAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_MarkPublished(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE outbox_events\\s+SET published_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkPublished(context.Background(), id, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_MarkFailed_Park(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE outbox_events\\s+SET attempts = attempts \\+ 1").
		WithArgs("broker unavailable", (*time.Time)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkFailed(context.Background(), id, "broker unavailable", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_MarkFailed_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepo(mock)
	id := uuid.New()
	next := time.Now().Add(5 * time.Second)

	mock.ExpectExec("UPDATE outbox_events").
		WithArgs("timeout", &next, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkFailed(context.Background(), id, "timeout", &next)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	userID := uuid.New()
	log := &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &userID,
		Action:       domain.AuditActionOrderPay,
		ResourceType: "order",
		ResourceID:   uuid.NewString(),
		IPAddress:    "10.0.0.1",
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, log.UserID, "ORDER_PAY", log.ResourceType,
			log.ResourceID, log.Details, log.IPAddress, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}
