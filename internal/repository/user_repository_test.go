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

func TestListIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM profiles")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1").AddRow("u2"))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)
}

func TestListIDsFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM profiles")).WillReturnError(errors.New("permission denied"))

	_, err := repo.ListIDs(context.Background())
	assert.Error(t, err)
}

func TestDueOn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReminderRepository(db)
	due := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM recurring_transactions rt")).
		WithArgs("2026-10-17").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "description", "type", "next_due_date", "fcm_token"}).
			AddRow("u1", "Renta", "Gasto", due, "token-1").
			AddRow("u2", "Salario", "Ingreso", due, nil))

	reminders, err := repo.DueOn(context.Background(), "2026-10-17")
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	require.NotNil(t, reminders[0].FCMToken)
	assert.Equal(t, "token-1", *reminders[0].FCMToken)
	assert.True(t, reminders[0].IsExpense())
	assert.Nil(t, reminders[1].FCMToken)
	assert.False(t, reminders[1].IsExpense())
}
