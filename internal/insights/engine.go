package insights

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/models"
	"github.com/stanstork/sasper-insights/internal/repository"
)

// GuardPolicy says when an evaluator consults the recency guard.
type GuardPolicy int

const (
	// GuardPerType checks (user, type) once, before querying the data source.
	GuardPerType GuardPolicy = iota
	// GuardPerRow always queries and checks (user, type, subject) for each
	// qualifying row.
	GuardPerRow
)

// InsightStore is the part of the insight repository the engine needs.
type InsightStore interface {
	InsightCounter
	Insert(ctx context.Context, params repository.CreateInsightParams) (models.Insight, error)
}

// Result is the outcome of one evaluator for one user.
type Result struct {
	UserID     string
	Type       models.InsightType
	Created    int
	Suppressed int
	Err        error
}

func (r Result) Failed() bool { return r.Err != nil }

type evaluator struct {
	insightType models.InsightType
	policy      GuardPolicy
	collect     func(ctx context.Context, userID string) ([]Candidate, error)
}

// Engine runs every evaluator for a user.
type Engine struct {
	finance    repository.FinanceRepository
	store      InsightStore
	guard      *RecencyGuard
	rules      Rules
	windows    map[models.InsightType]time.Duration
	location   *time.Location
	now        func() time.Time
	evaluators []evaluator
	logger     zerolog.Logger
}

type EngineOptions struct {
	Rules Rules
	// Windows holds the recency window per insight type; missing types are
	// not deduplicated.
	Windows  map[models.InsightType]time.Duration
	Location *time.Location
	Now      func() time.Time
}

func NewEngine(finance repository.FinanceRepository, store InsightStore, opts EngineOptions, logger zerolog.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	e := &Engine{
		finance:  finance,
		store:    store,
		guard:    NewRecencyGuard(store, opts.Now, logger),
		rules:    opts.Rules,
		windows:  opts.Windows,
		location: opts.Location,
		now:      opts.Now,
		logger:   logger.With().Str("component", "insight_engine").Logger(),
	}
	e.evaluators = []evaluator{
		{models.InsightWeeklySpending, GuardPerType, e.collectWeeklySpending},
		{models.InsightTopCategory, GuardPerType, e.collectTopCategory},
		{models.InsightMonthlySavings, GuardPerType, e.collectMonthlySavings},
		{models.InsightBudgetExceeded, GuardPerRow, e.collectBudgets},
		{models.InsightUpcomingPayment, GuardPerRow, e.collectUpcomingPayments},
		{models.InsightLowBalance, GuardPerRow, e.collectLowBalances},
		{models.InsightGoalMilestone, GuardPerRow, e.collectGoalMilestones},
	}
	return e
}

// EvaluateUser runs all evaluators for userID. Failures are reported in the
// results and never stop the remaining evaluators.
func (e *Engine) EvaluateUser(ctx context.Context, userID string) []Result {
	results := make([]Result, 0, len(e.evaluators))
	for _, ev := range e.evaluators {
		results = append(results, e.run(ctx, userID, ev))
	}
	return results
}

func (e *Engine) run(ctx context.Context, userID string, ev evaluator) (res Result) {
	res = Result{UserID: userID, Type: ev.insightType}
	logger := e.logger.With().Str("user_id", userID).Str("evaluator", string(ev.insightType)).Logger()

	defer func() {
		if r := recover(); r != nil {
			res.Err = errors.Errorf("evaluator panicked: %v", r)
			logger.Error().Err(res.Err).Msg("evaluator aborted")
		}
	}()

	window := e.windows[ev.insightType]
	if ev.policy == GuardPerType && e.guard.HasRecent(ctx, userID, ev.insightType, "", window) {
		res.Suppressed++
		logger.Debug().Dur("window", window).Msg("recent insight exists, skipping evaluation")
		return res
	}

	candidates, err := ev.collect(ctx, userID)
	if err != nil {
		res.Err = err
		logger.Error().Err(err).Msg("failed to evaluate insight")
		return res
	}
	if len(candidates) == 0 {
		logger.Debug().Msg("nothing significant to report")
		return res
	}

	for _, c := range candidates {
		if ev.policy == GuardPerRow && e.guard.HasRecent(ctx, userID, ev.insightType, c.Subject, window) {
			res.Suppressed++
			continue
		}
		insight, err := e.store.Insert(ctx, e.params(userID, ev.insightType, c))
		if err != nil {
			res.Err = err
			logger.Error().Err(err).Str("subject", c.Subject).Msg("failed to store insight")
			continue
		}
		res.Created++
		logger.Info().
			Str("insight_id", insight.ID).
			Str("severity", string(insight.Severity)).
			Msg("insight stored")
	}
	return res
}

func (e *Engine) params(userID string, t models.InsightType, c Candidate) repository.CreateInsightParams {
	metadata := make(map[string]interface{}, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		metadata[k] = v
	}
	if c.Subject != "" {
		metadata[models.MetadataSubject] = c.Subject
	}
	if e.rules.Format != nil {
		metadata["currency"] = e.rules.Format.CurrencyCode()
	}
	return repository.CreateInsightParams{
		UserID:      userID,
		Type:        t,
		Severity:    c.Severity,
		Title:       c.Title,
		Description: c.Description,
		Metadata:    metadata,
	}
}

func single(c Candidate, ok bool) []Candidate {
	if !ok {
		return nil
	}
	return []Candidate{c}
}

func (e *Engine) collectWeeklySpending(ctx context.Context, userID string) ([]Candidate, error) {
	row, err := e.finance.CompareWeeklySpending(ctx, userID)
	if err != nil {
		return nil, err
	}
	return single(e.rules.WeeklySpending(row)), nil
}

func (e *Engine) collectTopCategory(ctx context.Context, userID string) ([]Candidate, error) {
	row, err := e.finance.GetTopSpendingCategoryCurrentMonth(ctx, userID)
	if err != nil {
		return nil, err
	}
	return single(e.rules.TopCategory(row)), nil
}

func (e *Engine) collectMonthlySavings(ctx context.Context, userID string) ([]Candidate, error) {
	row, err := e.finance.CompareMonthlySavings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return single(e.rules.MonthlySavings(row)), nil
}

func (e *Engine) collectBudgets(ctx context.Context, userID string) ([]Candidate, error) {
	rows, err := e.finance.GetBudgetsProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.rules.BudgetsExceeded(rows), nil
}

func (e *Engine) collectUpcomingPayments(ctx context.Context, userID string) ([]Candidate, error) {
	rows, err := e.finance.GetUpcomingRecurringPayments(ctx, userID, e.rules.UpcomingDaysAhead)
	if err != nil {
		return nil, err
	}
	return e.rules.UpcomingPayments(rows, e.now().In(e.location)), nil
}

func (e *Engine) collectLowBalances(ctx context.Context, userID string) ([]Candidate, error) {
	rows, err := e.finance.CheckLowBalanceAccounts(ctx, userID, e.rules.LowBalanceThreshold)
	if err != nil {
		return nil, err
	}
	return e.rules.LowBalances(rows), nil
}

func (e *Engine) collectGoalMilestones(ctx context.Context, userID string) ([]Candidate, error) {
	rows, err := e.finance.CheckGoalMilestones(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.rules.GoalMilestones(rows), nil
}
