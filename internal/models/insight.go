package models

import "time"

type InsightType string

const (
	InsightWeeklySpending  InsightType = "weekly_spending_comparison"
	InsightTopCategory     InsightType = "top_spending_category"
	InsightMonthlySavings  InsightType = "monthly_savings_comparison"
	InsightBudgetExceeded  InsightType = "budget_exceeded"
	InsightUpcomingPayment InsightType = "upcoming_payment"
	InsightLowBalance      InsightType = "low_balance_warning"
	InsightGoalMilestone   InsightType = "goal_milestone"
)

// InsightTypes lists every insight type in evaluation order.
var InsightTypes = []InsightType{
	InsightWeeklySpending,
	InsightTopCategory,
	InsightMonthlySavings,
	InsightBudgetExceeded,
	InsightUpcomingPayment,
	InsightLowBalance,
	InsightGoalMilestone,
}

func (t InsightType) IsValid() bool {
	for _, known := range InsightTypes {
		if t == known {
			return true
		}
	}
	return false
}

type InsightSeverity string

const (
	SeverityInfo    InsightSeverity = "info"
	SeveritySuccess InsightSeverity = "success"
	SeverityWarning InsightSeverity = "warning"
	SeverityAlert   InsightSeverity = "alert"
)

func (s InsightSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityAlert:
		return true
	}
	return false
}

// MetadataSubject is the metadata key that identifies the row (budget,
// account, payment, goal) a per-row insight was raised for.
const MetadataSubject = "subject"

type Insight struct {
	ID          string                 `json:"id" db:"id"`
	UserID      string                 `json:"user_id" db:"user_id"`
	Type        InsightType            `json:"type" db:"type"`
	Severity    InsightSeverity        `json:"severity" db:"severity"`
	Title       string                 `json:"title" db:"title"`
	Description string                 `json:"description" db:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
}
