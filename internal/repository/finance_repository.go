package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sasper-insights/internal/models"
)

// Stored procedures backing the insight evaluators.
const (
	ProcCompareWeeklySpending     = "compare_weekly_spending"
	ProcTopSpendingCategory       = "get_top_spending_category_current_month"
	ProcCompareMonthlySavings     = "compare_monthly_savings"
	ProcBudgetsProgress           = "get_budgets_progress"
	ProcUpcomingRecurringPayments = "get_upcoming_recurring_payments"
	ProcCheckLowBalanceAccounts   = "check_low_balance_accounts"
	ProcCheckGoalMilestones       = "check_goal_milestones"
)

// FinanceRepository reads pre-aggregated financial facts for one user from
// the backend's stored procedures. Every error it returns is a
// *DataSourceError.
type FinanceRepository interface {
	CompareWeeklySpending(ctx context.Context, userID string) (*models.WeeklySpending, error)
	GetTopSpendingCategoryCurrentMonth(ctx context.Context, userID string) (*models.CategorySpending, error)
	CompareMonthlySavings(ctx context.Context, userID string) (*models.MonthlySavings, error)
	GetBudgetsProgress(ctx context.Context, userID string) ([]models.BudgetProgress, error)
	GetUpcomingRecurringPayments(ctx context.Context, userID string, daysAhead int) ([]models.RecurringPayment, error)
	CheckLowBalanceAccounts(ctx context.Context, userID string, threshold decimal.Decimal) ([]models.AccountBalance, error)
	CheckGoalMilestones(ctx context.Context, userID string) ([]models.GoalMilestone, error)
}

type financeRepository struct {
	db *sql.DB
}

func NewFinanceRepository(db *sql.DB) FinanceRepository {
	return &financeRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// call runs procedure and hands every row to scan. The first scan or
// validation error aborts the iteration.
func (r *financeRepository) call(ctx context.Context, procedure, query string, scan func(rowScanner) error, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return &DataSourceError{Procedure: procedure, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return &DataSourceError{Procedure: procedure, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &DataSourceError{Procedure: procedure, Err: err}
	}
	return nil
}

func (r *financeRepository) CompareWeeklySpending(ctx context.Context, userID string) (*models.WeeklySpending, error) {
	const query = `
		SELECT current_week_total, previous_week_total, percentage_change
		FROM compare_weekly_spending(p_user_id => $1)
	`
	var result *models.WeeklySpending
	err := r.call(ctx, ProcCompareWeeklySpending, query, func(s rowScanner) error {
		if result != nil {
			return nil
		}
		var current, previous decimal.NullDecimal
		var row models.WeeklySpending
		if err := s.Scan(&current, &previous, &row.PercentageChange); err != nil {
			return errors.Wrap(err, "scan weekly spending")
		}
		row.CurrentWeekTotal = orZero(current)
		row.PreviousWeekTotal = orZero(previous)
		result = &row
		return nil
	}, userID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *financeRepository) GetTopSpendingCategoryCurrentMonth(ctx context.Context, userID string) (*models.CategorySpending, error) {
	const query = `
		SELECT category, total_spent
		FROM get_top_spending_category_current_month(p_user_id => $1)
	`
	var result *models.CategorySpending
	err := r.call(ctx, ProcTopSpendingCategory, query, func(s rowScanner) error {
		if result != nil {
			return nil
		}
		var category sql.NullString
		var total decimal.NullDecimal
		if err := s.Scan(&category, &total); err != nil {
			return errors.Wrap(err, "scan top category")
		}
		name, err := requireName("category", category)
		if err != nil {
			return err
		}
		result = &models.CategorySpending{Category: name, TotalSpent: orZero(total)}
		return nil
	}, userID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *financeRepository) CompareMonthlySavings(ctx context.Context, userID string) (*models.MonthlySavings, error) {
	const query = `
		SELECT current_month_savings, previous_month_savings
		FROM compare_monthly_savings(p_user_id => $1)
	`
	var result *models.MonthlySavings
	err := r.call(ctx, ProcCompareMonthlySavings, query, func(s rowScanner) error {
		if result != nil {
			return nil
		}
		var current, previous decimal.NullDecimal
		if err := s.Scan(&current, &previous); err != nil {
			return errors.Wrap(err, "scan monthly savings")
		}
		result = &models.MonthlySavings{
			CurrentMonthSavings:  orZero(current),
			PreviousMonthSavings: orZero(previous),
		}
		return nil
	}, userID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *financeRepository) GetBudgetsProgress(ctx context.Context, userID string) ([]models.BudgetProgress, error) {
	const query = `
		SELECT category, budget_amount, spent_amount, progress
		FROM get_budgets_progress(p_user_id => $1)
	`
	var budgets []models.BudgetProgress
	err := r.call(ctx, ProcBudgetsProgress, query, func(s rowScanner) error {
		var category sql.NullString
		var budget, spent, progress decimal.NullDecimal
		if err := s.Scan(&category, &budget, &spent, &progress); err != nil {
			return errors.Wrap(err, "scan budget progress")
		}
		name, err := requireName("category", category)
		if err != nil {
			return err
		}
		row := models.BudgetProgress{
			Category:     name,
			BudgetAmount: orZero(budget),
			SpentAmount:  orZero(spent),
			Progress:     orZero(progress),
		}
		if row.Progress.IsNegative() {
			return fmt.Errorf("budget %q has negative progress %s", name, row.Progress)
		}
		budgets = append(budgets, row)
		return nil
	}, userID)
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *financeRepository) GetUpcomingRecurringPayments(ctx context.Context, userID string, daysAhead int) ([]models.RecurringPayment, error) {
	const query = `
		SELECT description, amount, next_due_date
		FROM get_upcoming_recurring_payments(p_user_id => $1, p_days_ahead => $2)
	`
	var payments []models.RecurringPayment
	err := r.call(ctx, ProcUpcomingRecurringPayments, query, func(s rowScanner) error {
		var description sql.NullString
		var amount decimal.NullDecimal
		var due sql.NullTime
		if err := s.Scan(&description, &amount, &due); err != nil {
			return errors.Wrap(err, "scan recurring payment")
		}
		name, err := requireName("description", description)
		if err != nil {
			return err
		}
		if !due.Valid {
			return fmt.Errorf("payment %q has no next due date", name)
		}
		payments = append(payments, models.RecurringPayment{
			Description: name,
			Amount:      orZero(amount),
			NextDueDate: due.Time,
		})
		return nil
	}, userID, daysAhead)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *financeRepository) CheckLowBalanceAccounts(ctx context.Context, userID string, threshold decimal.Decimal) ([]models.AccountBalance, error) {
	const query = `
		SELECT account_name, current_balance
		FROM check_low_balance_accounts(p_user_id => $1, p_threshold => $2)
	`
	var accounts []models.AccountBalance
	err := r.call(ctx, ProcCheckLowBalanceAccounts, query, func(s rowScanner) error {
		var name sql.NullString
		var balance decimal.NullDecimal
		if err := s.Scan(&name, &balance); err != nil {
			return errors.Wrap(err, "scan account balance")
		}
		account, err := requireName("account_name", name)
		if err != nil {
			return err
		}
		accounts = append(accounts, models.AccountBalance{AccountName: account, CurrentBalance: orZero(balance)})
		return nil
	}, userID, threshold.String())
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *financeRepository) CheckGoalMilestones(ctx context.Context, userID string) ([]models.GoalMilestone, error) {
	const query = `
		SELECT goal_name, milestone
		FROM check_goal_milestones(p_user_id => $1)
	`
	var goals []models.GoalMilestone
	err := r.call(ctx, ProcCheckGoalMilestones, query, func(s rowScanner) error {
		var name sql.NullString
		var milestone sql.NullInt64
		if err := s.Scan(&name, &milestone); err != nil {
			return errors.Wrap(err, "scan goal milestone")
		}
		goal, err := requireName("goal_name", name)
		if err != nil {
			return err
		}
		if !milestone.Valid || !models.IsGoalMilestone(int(milestone.Int64)) {
			return fmt.Errorf("goal %q reported unknown milestone %v", goal, milestone.Int64)
		}
		goals = append(goals, models.GoalMilestone{GoalName: goal, Milestone: int(milestone.Int64)})
		return nil
	}, userID)
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func requireName(column string, v sql.NullString) (string, error) {
	name := strings.TrimSpace(v.String)
	if !v.Valid || name == "" {
		return "", fmt.Errorf("%s is empty", column)
	}
	return name, nil
}
