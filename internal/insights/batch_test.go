package insights

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/models"
	"github.com/stanstork/sasper-insights/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRunIsolatesFailures(t *testing.T) {
	finance := newFakeFinance()
	broken := richUser()
	broken.failing = map[string]error{
		repository.ProcCompareWeeklySpending: errBackend,
		repository.ProcBudgetsProgress:       errBackend,
	}
	finance.users["u1"] = broken
	finance.users["u2"] = richUser()
	store := newMemStore()
	batch := NewBatch(staticUsers{ids: []string{"u1", "u2"}}, newTestEngine(t, finance, store), 2, zerolog.Nop())

	summary, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, 2, summary.Failures)
	assert.Equal(t, 12, summary.InsightsCreated)
	assert.Equal(t, "Análisis de insights completado para 2 usuarios.", summary.Message)
	assert.Empty(t, store.byType("u1", models.InsightWeeklySpending))
	assert.Len(t, store.byType("u1", models.InsightTopCategory), 1)
	assert.Len(t, store.byType("u2", models.InsightWeeklySpending), 1)
}

func TestBatchRunUserFetchFailureIsFatal(t *testing.T) {
	finance := newFakeFinance()
	finance.users["u1"] = richUser()
	store := newMemStore()
	batch := NewBatch(staticUsers{err: errors.New("relation \"profiles\" does not exist")}, newTestEngine(t, finance, store), 4, zerolog.Nop())

	summary, err := batch.Run(context.Background())
	require.Error(t, err)

	var fatal *FatalError
	assert.True(t, errors.As(err, &fatal))
	assert.Contains(t, err.Error(), "fetch users")
	assert.Zero(t, summary.UsersProcessed)
	assert.Zero(t, store.total())
}

func TestBatchRunIsIdempotentWithinWindow(t *testing.T) {
	finance := newFakeFinance()
	finance.users["u1"] = richUser()
	store := newMemStore()
	batch := NewBatch(staticUsers{ids: []string{"u1"}}, newTestEngine(t, finance, store), 1, zerolog.Nop())

	_, err := batch.Run(context.Background())
	require.NoError(t, err)
	second, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.byType("u1", models.InsightWeeklySpending), 1)
	assert.Equal(t, 1, second.InsightsCreated)
	assert.Equal(t, 6, second.InsightsSuppressed)
}

func TestBatchRunManyUsersConcurrently(t *testing.T) {
	finance := newFakeFinance()
	var ids []string
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("user-%02d", i)
		ids = append(ids, id)
		finance.users[id] = &userFinance{
			balances: []models.AccountBalance{{AccountName: "Main", CurrentBalance: d(10)}},
		}
	}
	store := newMemStore()
	batch := NewBatch(staticUsers{ids: ids}, newTestEngine(t, finance, store), 4, zerolog.Nop())

	summary, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25, summary.UsersProcessed)
	assert.Equal(t, 25, summary.InsightsCreated)
	assert.Zero(t, summary.Failures)
	for _, id := range ids {
		assert.Len(t, store.byType(id, models.InsightLowBalance), 1, id)
	}
}

func TestBatchRunWithNoUsers(t *testing.T) {
	batch := NewBatch(staticUsers{}, newTestEngine(t, newFakeFinance(), newMemStore()), 0, zerolog.Nop())

	summary, err := batch.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.UsersProcessed)
	assert.NotEmpty(t, summary.Message)
}
