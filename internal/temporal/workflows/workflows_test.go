package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stanstork/sasper-insights/internal/insights"
	"github.com/stanstork/sasper-insights/internal/reminders"
	"github.com/stanstork/sasper-insights/internal/temporal"
	"github.com/stanstork/sasper-insights/internal/temporal/activities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type fakeBatch struct {
	calls   int
	summary insights.Summary
	err     error
}

func (f *fakeBatch) Run(context.Context) (insights.Summary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeReminders struct {
	calls  int
	report reminders.Report
	err    error
}

func (f *fakeReminders) SendDueTomorrow(context.Context) (reminders.Report, error) {
	f.calls++
	return f.report, f.err
}

func newEnv(t *testing.T, batch *fakeBatch, rem *fakeReminders) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&activities.Activities{Batch: batch, Reminders: rem})
	return env
}

func TestGenerateInsightsWorkflow(t *testing.T) {
	batch := &fakeBatch{summary: insights.Summary{
		Message:         "Análisis de insights completado para 2 usuarios.",
		UsersProcessed:  2,
		InsightsCreated: 4,
	}}
	env := newEnv(t, batch, &fakeReminders{})

	env.ExecuteWorkflow(GenerateInsightsWorkflow, temporal.RunParams{ActivityTimeout: time.Minute})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var summary insights.Summary
	require.NoError(t, env.GetWorkflowResult(&summary))
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, 4, summary.InsightsCreated)
}

func TestGenerateInsightsWorkflowDoesNotRetry(t *testing.T) {
	batch := &fakeBatch{err: &insights.FatalError{Err: errors.New("fetch users: connection refused")}}
	env := newEnv(t, batch, &fakeReminders{})

	env.ExecuteWorkflow(GenerateInsightsWorkflow, temporal.RunParams{})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *sdktemporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Error(), "fetch users")
	assert.Equal(t, 1, batch.calls)
}

func TestPaymentRemindersWorkflow(t *testing.T) {
	rem := &fakeReminders{report: reminders.Report{Day: "2026-03-05", Found: 3, Sent: 2, Skipped: 1}}
	env := newEnv(t, &fakeBatch{}, rem)

	env.ExecuteWorkflow(PaymentRemindersWorkflow, temporal.RunParams{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var report reminders.Report
	require.NoError(t, env.GetWorkflowResult(&report))
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, "2026-03-05", report.Day)
}

func TestPaymentRemindersWorkflowFailure(t *testing.T) {
	rem := &fakeReminders{err: errors.New("list reminders due 2026-03-05: timeout")}
	env := newEnv(t, &fakeBatch{}, rem)

	env.ExecuteWorkflow(PaymentRemindersWorkflow, temporal.RunParams{})

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, rem.calls)
}
