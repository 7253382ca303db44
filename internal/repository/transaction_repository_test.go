package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionColumns = []string{"description", "amount", "type", "category", "created_at"}

func TestLatestTransactions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	at := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow("Super", "412.50", "Gasto", "Comida", at).
			AddRow(nil, nil, "Ingreso", nil, at.Add(-time.Hour)))

	txs, err := repo.Latest(context.Background(), " user-1 ", 50)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "Super", txs[0].Description)
	assert.Equal(t, "412.5", txs[0].Amount.String())
	assert.Equal(t, "Comida", txs[0].Category)
	assert.Equal(t, "Ingreso", txs[1].Kind)
	assert.True(t, txs[1].Amount.IsZero())
	assert.Empty(t, txs[1].Category)
}

func TestLatestTransactionsLimits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(transactionColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WithArgs("user-1", maxTransactions).
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	txs, err := repo.Latest(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)

	_, err = repo.Latest(context.Background(), "user-1", 10_000)
	require.NoError(t, err)
}

func TestLatestTransactionsQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WillReturnError(errors.New("relation \"transactions\" does not exist"))

	_, err := repo.Latest(context.Background(), "user-1", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query transactions")
}
