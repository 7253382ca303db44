package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalMilestones are the percentage checkpoints a savings goal can cross.
var GoalMilestones = []int{25, 50, 75, 100}

// WeeklySpending compares the current week's expenses with the previous week.
// PercentageChange is absent when there is no prior-week baseline.
type WeeklySpending struct {
	CurrentWeekTotal  decimal.Decimal     `json:"current_week_total" db:"current_week_total"`
	PreviousWeekTotal decimal.Decimal     `json:"previous_week_total" db:"previous_week_total"`
	PercentageChange  decimal.NullDecimal `json:"percentage_change" db:"percentage_change"`
}

type CategorySpending struct {
	Category   string          `json:"category" db:"category"`
	TotalSpent decimal.Decimal `json:"total_spent" db:"total_spent"`
}

type MonthlySavings struct {
	CurrentMonthSavings  decimal.Decimal `json:"current_month_savings" db:"current_month_savings"`
	PreviousMonthSavings decimal.Decimal `json:"previous_month_savings" db:"previous_month_savings"`
}

// BudgetProgress reports consumption of one category budget. Progress is a
// fraction where 1.0 means the whole budget has been spent.
type BudgetProgress struct {
	Category     string          `json:"category" db:"category"`
	BudgetAmount decimal.Decimal `json:"budget_amount" db:"budget_amount"`
	SpentAmount  decimal.Decimal `json:"spent_amount" db:"spent_amount"`
	Progress     decimal.Decimal `json:"progress" db:"progress"`
}

type RecurringPayment struct {
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	NextDueDate time.Time       `json:"next_due_date" db:"next_due_date"`
}

type AccountBalance struct {
	AccountName    string          `json:"account_name" db:"account_name"`
	CurrentBalance decimal.Decimal `json:"current_balance" db:"current_balance"`
}

type GoalMilestone struct {
	GoalName  string `json:"goal_name" db:"goal_name"`
	Milestone int    `json:"milestone" db:"milestone"`
}

func IsGoalMilestone(m int) bool {
	for _, known := range GoalMilestones {
		if m == known {
			return true
		}
	}
	return false
}
