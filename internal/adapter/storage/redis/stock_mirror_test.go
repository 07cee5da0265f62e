package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMirror(t *testing.T) (*StockMirror, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return NewStockMirror(client), s
}

func TestStockMirror_SetAndGet(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	productID := uuid.New()

	_, found, err := m.Get(ctx, productID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Set(ctx, productID, 3))

	stock, found, err := m.Get(ctx, productID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, stock)
}

func TestStockMirror_ApplyDelta_Once(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	productID, eventID := uuid.New(), uuid.New()
	require.NoError(t, m.Set(ctx, productID, 3))

	applied, err := m.ApplyDelta(ctx, eventID, productID, -2, time.Hour)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = m.ApplyDelta(ctx, eventID, productID, -2, time.Hour)
	require.NoError(t, err)
	assert.False(t, applied, "a redelivered event must not move stock again")

	stock, _, err := m.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock)
}

func TestStockMirror_ApplyDelta_NegativeResultIsNotDuplicate(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	productID := uuid.New()

	applied, err := m.ApplyDelta(ctx, uuid.New(), productID, -1, time.Hour)
	require.NoError(t, err)
	assert.True(t, applied)

	stock, found, err := m.Get(ctx, productID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, -1, stock)
}

func TestStockMirror_ApplyDelta_MarkerExpires(t *testing.T) {
	m, s := newTestMirror(t)
	ctx := context.Background()
	productID, eventID := uuid.New(), uuid.New()

	_, err := m.ApplyDelta(ctx, eventID, productID, 5, time.Second)
	require.NoError(t, err)
	assert.True(t, s.Exists("stock:applied:"+eventID.String()))

	s.FastForward(2 * time.Second)
	assert.False(t, s.Exists("stock:applied:"+eventID.String()))
	assert.True(t, s.Exists("stock:"+productID.String()), "the counter itself never expires")
}
