package activities

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stanstork/sasper-insights/internal/insights"
	"github.com/stanstork/sasper-insights/internal/reminders"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"
)

type InsightsBatch interface {
	Run(ctx context.Context) (insights.Summary, error)
}

type ReminderSender interface {
	SendDueTomorrow(ctx context.Context) (reminders.Report, error)
}

type Activities struct {
	Batch     InsightsBatch
	Reminders ReminderSender
}

func (a *Activities) GenerateInsightsActivity(ctx context.Context) (insights.Summary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Starting insight generation batch")

	summary, err := a.Batch.Run(ctx)
	if err != nil {
		logger.Error("Insight generation batch failed", "error", err)
		var fatal *insights.FatalError
		if errors.As(err, &fatal) {
			return summary, sdktemporal.NewNonRetryableApplicationError(err.Error(), "FatalError", err)
		}
		return summary, err
	}

	logger.Info("Insight generation batch finished",
		"users", summary.UsersProcessed,
		"created", summary.InsightsCreated,
		"suppressed", summary.InsightsSuppressed,
		"failures", summary.Failures)
	return summary, nil
}

func (a *Activities) SendPaymentRemindersActivity(ctx context.Context) (reminders.Report, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Checking recurring transactions due tomorrow")

	report, err := a.Reminders.SendDueTomorrow(ctx)
	if err != nil {
		logger.Error("Payment reminder run failed", "error", err)
		return report, err
	}

	logger.Info("Payment reminders finished",
		"day", report.Day,
		"found", report.Found,
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}
