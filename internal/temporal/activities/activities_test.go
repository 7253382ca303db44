package activities

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stanstork/sasper-insights/internal/insights"
	"github.com/stanstork/sasper-insights/internal/reminders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

type batchFunc func(context.Context) (insights.Summary, error)

func (f batchFunc) Run(ctx context.Context) (insights.Summary, error) { return f(ctx) }

type reminderFunc func(context.Context) (reminders.Report, error)

func (f reminderFunc) SendDueTomorrow(ctx context.Context) (reminders.Report, error) { return f(ctx) }

func TestGenerateInsightsActivity(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	a := &Activities{Batch: batchFunc(func(context.Context) (insights.Summary, error) {
		return insights.Summary{UsersProcessed: 7, InsightsCreated: 3}, nil
	})}
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.GenerateInsightsActivity)
	require.NoError(t, err)

	var summary insights.Summary
	require.NoError(t, val.Get(&summary))
	assert.Equal(t, 7, summary.UsersProcessed)
	assert.Equal(t, 3, summary.InsightsCreated)
}

func TestGenerateInsightsActivityFatal(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	a := &Activities{Batch: batchFunc(func(context.Context) (insights.Summary, error) {
		return insights.Summary{}, &insights.FatalError{Err: errors.New("fetch users: timeout")}
	})}
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.GenerateInsightsActivity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch users")
}

func TestSendPaymentRemindersActivity(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	a := &Activities{Reminders: reminderFunc(func(context.Context) (reminders.Report, error) {
		return reminders.Report{Day: "2026-03-05", Found: 1, Sent: 1}, nil
	})}
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.SendPaymentRemindersActivity)
	require.NoError(t, err)

	var report reminders.Report
	require.NoError(t, val.Get(&report))
	assert.Equal(t, 1, report.Sent)
}
