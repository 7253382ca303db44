package temporal

import "time"

// DefaultTaskQueue is used when no task queue is configured.
const DefaultTaskQueue = "SASPER_INSIGHTS"

// Workflow type names, registered on the worker and referenced by schedules.
const (
	InsightsWorkflowName  = "GenerateInsightsWorkflow"
	RemindersWorkflowName = "PaymentRemindersWorkflow"
)

// Schedule and workflow ID prefixes for the daily jobs.
const (
	InsightsScheduleID  = "insights-daily"
	RemindersScheduleID = "payment-reminders-daily"

	InsightsWorkflowIDPrefix  = "sasper-insights-"
	RemindersWorkflowIDPrefix = "sasper-reminders-"
)

// DefaultActivityTimeout bounds one batch activity when RunParams carries none.
const DefaultActivityTimeout = 30 * time.Minute

// RunParams is the input of both scheduled workflows.
type RunParams struct {
	ActivityTimeout time.Duration
}

func (p RunParams) Timeout() time.Duration {
	if p.ActivityTimeout <= 0 {
		return DefaultActivityTimeout
	}
	return p.ActivityTimeout
}
