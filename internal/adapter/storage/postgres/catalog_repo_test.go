package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "title", "price", "stock"}).
			AddRow(id, owner, "Desk lamp", decimal.RequireFromString("24.90"), 7))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, owner, p.OwnerID)
	assert.Equal(t, 7, p.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_DecrementStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, id).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	remaining, ok, err := repo.DecrementStock(context.Background(), tx, id, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_DecrementStock_Insufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE products SET stock = stock - \$1.+stock >= \$1`).
		WithArgs(5, id).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, ok, err := repo.DecrementStock(context.Background(), tx, id, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepo(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAddressRepo(mock)
	userID, addrID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT COUNT.+ FROM addresses").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT .+ FROM addresses WHERE id").
		WithArgs(addrID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "recipient", "street", "city", "postal_code", "country"}).
			AddRow(addrID, userID, "Ana", "1 Main St", "Springfield", "12345", "US"))

	n, err := repo.CountByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, err := repo.GetByID(context.Background(), addrID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.OwnedBy(userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
