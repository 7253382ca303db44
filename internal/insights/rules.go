package insights

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stanstork/sasper-insights/internal/format"
	"github.com/stanstork/sasper-insights/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Candidate is an insight that passed its significance rule and is waiting
// for the recency guard and the store.
type Candidate struct {
	Severity    models.InsightSeverity
	Title       string
	Description string
	// Subject identifies the row a per-row insight is about. Empty for
	// per-type insights.
	Subject  string
	Metadata map[string]interface{}
}

// Rules holds the significance thresholds and renders insight copy. All of
// its methods are pure.
type Rules struct {
	Format *format.Formatter

	WeeklyChangeThreshold   decimal.Decimal
	SavingsMinDifference    decimal.Decimal
	BudgetProgressThreshold decimal.Decimal
	LowBalanceThreshold     decimal.Decimal
	UpcomingDaysAhead       int
}

// DefaultRules returns the production thresholds.
func DefaultRules(f *format.Formatter) Rules {
	return Rules{
		Format:                  f,
		WeeklyChangeThreshold:   decimal.NewFromInt(10),
		SavingsMinDifference:    decimal.NewFromInt(1),
		BudgetProgressThreshold: decimal.NewFromInt(1),
		LowBalanceThreshold:     decimal.NewFromInt(50),
		UpcomingDaysAhead:       3,
	}
}

func (r Rules) money(d decimal.Decimal) string { return r.Format.Money(d) }

// weeklyChange prefers the backend's percentage and falls back to deriving
// it from the totals when only the baseline is known.
func weeklyChange(row *models.WeeklySpending) (decimal.Decimal, bool) {
	if row.PercentageChange.Valid {
		return row.PercentageChange.Decimal, true
	}
	if row.PreviousWeekTotal.IsZero() {
		return decimal.Zero, false
	}
	return row.CurrentWeekTotal.Sub(row.PreviousWeekTotal).Div(row.PreviousWeekTotal).Mul(hundred), true
}

func (r Rules) WeeklySpending(row *models.WeeklySpending) (Candidate, bool) {
	if row == nil {
		return Candidate{}, false
	}
	pct, ok := weeklyChange(row)
	if !ok || pct.Abs().LessThanOrEqual(r.WeeklyChangeThreshold) {
		return Candidate{}, false
	}

	severity := models.SeveritySuccess
	if pct.IsPositive() {
		severity = models.SeverityWarning
	}
	change := r.Format.Percent(pct)
	return Candidate{
		Severity: severity,
		Title:    fmt.Sprintf("%s en Gastos", change),
		Description: fmt.Sprintf("Esta semana gastaste %s, un cambio del %s respecto a los %s de la semana anterior.",
			r.money(row.CurrentWeekTotal), change, r.money(row.PreviousWeekTotal)),
		Metadata: map[string]interface{}{
			"current":           row.CurrentWeekTotal.InexactFloat64(),
			"previous":          row.PreviousWeekTotal.InexactFloat64(),
			"percentage_change": pct.Round(2).InexactFloat64(),
		},
	}, true
}

func (r Rules) TopCategory(row *models.CategorySpending) (Candidate, bool) {
	if row == nil {
		return Candidate{}, false
	}
	return Candidate{
		Severity: models.SeverityInfo,
		Title:    fmt.Sprintf("Mayor Gasto: %s", row.Category),
		Description: fmt.Sprintf("Este mes, tu principal gasto ha sido en \"%s\", con un total de %s.",
			row.Category, r.money(row.TotalSpent)),
		Metadata: map[string]interface{}{
			"category": row.Category,
			"total":    row.TotalSpent.InexactFloat64(),
		},
	}, true
}

func (r Rules) MonthlySavings(row *models.MonthlySavings) (Candidate, bool) {
	if row == nil || row.PreviousMonthSavings.IsZero() {
		return Candidate{}, false
	}
	diff := row.CurrentMonthSavings.Sub(row.PreviousMonthSavings)
	if diff.Abs().LessThanOrEqual(r.SavingsMinDifference) {
		return Candidate{}, false
	}

	pct := diff.Div(row.PreviousMonthSavings.Abs()).Mul(hundred)
	severity, title := models.SeverityWarning, "Tu ahorro bajó este mes"
	if diff.IsPositive() {
		severity, title = models.SeveritySuccess, "¡Ahorraste más este mes!"
	}
	return Candidate{
		Severity: severity,
		Title:    title,
		Description: fmt.Sprintf("Este mes llevas %s ahorrados frente a %s del mes anterior (%s).",
			r.money(row.CurrentMonthSavings), r.money(row.PreviousMonthSavings), r.Format.Percent(pct)),
		Metadata: map[string]interface{}{
			"current":           row.CurrentMonthSavings.InexactFloat64(),
			"previous":          row.PreviousMonthSavings.InexactFloat64(),
			"difference":        diff.InexactFloat64(),
			"percentage_change": pct.Round(2).InexactFloat64(),
		},
	}, true
}

func (r Rules) BudgetsExceeded(rows []models.BudgetProgress) []Candidate {
	var out []Candidate
	for _, b := range rows {
		if b.Progress.LessThan(r.BudgetProgressThreshold) {
			continue
		}
		used := b.Progress.Mul(hundred).Round(0).IntPart()
		out = append(out, Candidate{
			Severity: models.SeverityAlert,
			Title:    fmt.Sprintf("Presupuesto Excedido: %s", b.Category),
			Description: fmt.Sprintf("Has gastado %s de tu presupuesto de %s para \"%s\" (%d%%).",
				r.money(b.SpentAmount), r.money(b.BudgetAmount), b.Category, used),
			Subject: b.Category,
			Metadata: map[string]interface{}{
				"category": b.Category,
				"budget":   b.BudgetAmount.InexactFloat64(),
				"spent":    b.SpentAmount.InexactFloat64(),
				"progress": b.Progress.InexactFloat64(),
			},
		})
	}
	return out
}

// UpcomingPayments keeps payments due between today and today plus
// UpcomingDaysAhead, both inclusive, comparing calendar days only.
func (r Rules) UpcomingPayments(rows []models.RecurringPayment, today time.Time) []Candidate {
	start := civilDay(today)
	var out []Candidate
	for _, p := range rows {
		due := civilDay(p.NextDueDate)
		days := int(due.Sub(start).Hours() / 24)
		if days < 0 || days > r.UpcomingDaysAhead {
			continue
		}
		dueStr := due.Format("2006-01-02")
		out = append(out, Candidate{
			Severity: models.SeverityInfo,
			Title:    fmt.Sprintf("Próximo Pago: %s", p.Description),
			Description: fmt.Sprintf("Tu pago de \"%s\" por %s vence el %s.",
				p.Description, r.money(p.Amount), r.Format.Day(due)),
			Subject: p.Description + "|" + dueStr,
			Metadata: map[string]interface{}{
				"description":   p.Description,
				"amount":        p.Amount.InexactFloat64(),
				"next_due_date": dueStr,
				"days_until":    days,
			},
		})
	}
	return out
}

func (r Rules) LowBalances(rows []models.AccountBalance) []Candidate {
	var out []Candidate
	for _, a := range rows {
		if !a.CurrentBalance.LessThan(r.LowBalanceThreshold) {
			continue
		}
		out = append(out, Candidate{
			Severity: models.SeverityWarning,
			Title:    fmt.Sprintf("Saldo Bajo: %s", a.AccountName),
			Description: fmt.Sprintf("Tu cuenta \"%s\" tiene un saldo de %s, por debajo de %s.",
				a.AccountName, r.money(a.CurrentBalance), r.money(r.LowBalanceThreshold)),
			Subject: a.AccountName,
			Metadata: map[string]interface{}{
				"account":   a.AccountName,
				"balance":   a.CurrentBalance.InexactFloat64(),
				"threshold": r.LowBalanceThreshold.InexactFloat64(),
			},
		})
	}
	return out
}

func (r Rules) GoalMilestones(rows []models.GoalMilestone) []Candidate {
	var out []Candidate
	for _, g := range rows {
		if !models.IsGoalMilestone(g.Milestone) {
			continue
		}
		title := fmt.Sprintf("Meta al %d%%: %s", g.Milestone, g.GoalName)
		description := fmt.Sprintf("Tu meta \"%s\" alcanzó el %d%% de su objetivo.", g.GoalName, g.Milestone)
		if g.Milestone == 100 {
			title = fmt.Sprintf("¡Meta Completada: %s!", g.GoalName)
			description = fmt.Sprintf("Alcanzaste el 100%% de tu meta \"%s\". ¡Felicidades!", g.GoalName)
		}
		out = append(out, Candidate{
			Severity:    models.SeveritySuccess,
			Title:       title,
			Description: description,
			Subject:     fmt.Sprintf("%s|%d", g.GoalName, g.Milestone),
			Metadata: map[string]interface{}{
				"goal":      g.GoalName,
				"milestone": g.Milestone,
			},
		})
	}
	return out
}

func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
