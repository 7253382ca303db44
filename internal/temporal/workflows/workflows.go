package workflows

import (
	"github.com/stanstork/sasper-insights/internal/insights"
	"github.com/stanstork/sasper-insights/internal/reminders"
	"github.com/stanstork/sasper-insights/internal/temporal"
	"github.com/stanstork/sasper-insights/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func activityContext(ctx workflow.Context, params temporal.RunParams) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: params.Timeout(),
		// Single attempt; a failed run waits for the next schedule.
		RetryPolicy: &sdktemporal.RetryPolicy{MaximumAttempts: 1},
	})
}

// GenerateInsightsWorkflow runs one insight batch over every user.
func GenerateInsightsWorkflow(ctx workflow.Context, params temporal.RunParams) (insights.Summary, error) {
	ctx = activityContext(ctx, params)
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting insights workflow")

	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	var summary insights.Summary
	if err := workflow.ExecuteActivity(ctx, a.GenerateInsightsActivity).Get(ctx, &summary); err != nil {
		logger.Error("Insights workflow failed.", "error", err)
		return summary, err
	}

	logger.Info("Insights workflow completed.", "message", summary.Message)
	return summary, nil
}

// PaymentRemindersWorkflow pushes reminders for recurring transactions due
// tomorrow.
func PaymentRemindersWorkflow(ctx workflow.Context, params temporal.RunParams) (reminders.Report, error) {
	ctx = activityContext(ctx, params)
	logger := workflow.GetLogger(ctx)

	var a *activities.Activities

	var report reminders.Report
	if err := workflow.ExecuteActivity(ctx, a.SendPaymentRemindersActivity).Get(ctx, &report); err != nil {
		logger.Error("Payment reminders workflow failed.", "error", err)
		return report, err
	}

	logger.Info("Payment reminders workflow completed.", "sent", report.Sent)
	return report, nil
}
