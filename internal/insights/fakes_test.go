package insights

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sasper-insights/internal/format"
	"github.com/stanstork/sasper-insights/internal/models"
	"github.com/stanstork/sasper-insights/internal/repository"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time { return func() time.Time { return testNow } }

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func testRules(t *testing.T) Rules {
	t.Helper()
	f, err := format.New("es-MX", "MXN", "$")
	require.NoError(t, err)
	return DefaultRules(f)
}

func testWindows() map[models.InsightType]time.Duration {
	day := 24 * time.Hour
	return map[models.InsightType]time.Duration{
		models.InsightWeeklySpending:  7 * day,
		models.InsightTopCategory:     30 * day,
		models.InsightMonthlySavings:  30 * day,
		models.InsightBudgetExceeded:  7 * day,
		models.InsightUpcomingPayment: 4 * day,
		models.InsightLowBalance:      7 * day,
	}
}

// userFinance is the data one fake user exposes through the procedures.
type userFinance struct {
	weekly   *models.WeeklySpending
	top      *models.CategorySpending
	savings  *models.MonthlySavings
	budgets  []models.BudgetProgress
	payments []models.RecurringPayment
	balances []models.AccountBalance
	goals    []models.GoalMilestone
	// failing maps a procedure name to the error it returns.
	failing map[string]error
	panics  bool
}

type fakeFinance struct {
	mu    sync.Mutex
	users map[string]*userFinance
	calls map[string]int
}

func newFakeFinance() *fakeFinance {
	return &fakeFinance{users: map[string]*userFinance{}, calls: map[string]int{}}
}

func (f *fakeFinance) user(id string) (*userFinance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		u = &userFinance{}
	}
	return u, nil
}

func (f *fakeFinance) enter(userID, proc string) (*userFinance, error) {
	f.mu.Lock()
	f.calls[proc]++
	f.mu.Unlock()
	u, _ := f.user(userID)
	if u.panics && proc == repository.ProcCheckGoalMilestones {
		panic("unexpected row shape")
	}
	if err, ok := u.failing[proc]; ok {
		return nil, &repository.DataSourceError{Procedure: proc, Err: err}
	}
	return u, nil
}

func (f *fakeFinance) callCount(proc string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[proc]
}

func (f *fakeFinance) CompareWeeklySpending(_ context.Context, userID string) (*models.WeeklySpending, error) {
	u, err := f.enter(userID, repository.ProcCompareWeeklySpending)
	if err != nil {
		return nil, err
	}
	return u.weekly, nil
}

func (f *fakeFinance) GetTopSpendingCategoryCurrentMonth(_ context.Context, userID string) (*models.CategorySpending, error) {
	u, err := f.enter(userID, repository.ProcTopSpendingCategory)
	if err != nil {
		return nil, err
	}
	return u.top, nil
}

func (f *fakeFinance) CompareMonthlySavings(_ context.Context, userID string) (*models.MonthlySavings, error) {
	u, err := f.enter(userID, repository.ProcCompareMonthlySavings)
	if err != nil {
		return nil, err
	}
	return u.savings, nil
}

func (f *fakeFinance) GetBudgetsProgress(_ context.Context, userID string) ([]models.BudgetProgress, error) {
	u, err := f.enter(userID, repository.ProcBudgetsProgress)
	if err != nil {
		return nil, err
	}
	return u.budgets, nil
}

func (f *fakeFinance) GetUpcomingRecurringPayments(_ context.Context, userID string, _ int) ([]models.RecurringPayment, error) {
	u, err := f.enter(userID, repository.ProcUpcomingRecurringPayments)
	if err != nil {
		return nil, err
	}
	return u.payments, nil
}

func (f *fakeFinance) CheckLowBalanceAccounts(_ context.Context, userID string, threshold decimal.Decimal) ([]models.AccountBalance, error) {
	u, err := f.enter(userID, repository.ProcCheckLowBalanceAccounts)
	if err != nil {
		return nil, err
	}
	var out []models.AccountBalance
	for _, a := range u.balances {
		if a.CurrentBalance.LessThan(threshold) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeFinance) CheckGoalMilestones(_ context.Context, userID string) ([]models.GoalMilestone, error) {
	u, err := f.enter(userID, repository.ProcCheckGoalMilestones)
	if err != nil {
		return nil, err
	}
	return u.goals, nil
}

// memStore is an in-memory insight store with injectable failures.
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	insights []models.Insight
	countErr error
	// insertErr fails inserts whose title matches the key.
	insertErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{now: fixedClock(), insertErr: map[string]error{}}
}

func (s *memStore) Insert(_ context.Context, p repository.CreateInsightParams) (models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.insertErr[p.Title]; ok {
		return models.Insight{}, &repository.StoreError{Op: "insert", Err: err}
	}
	insight := models.Insight{
		ID:          fmt.Sprintf("insight-%d", len(s.insights)+1),
		UserID:      p.UserID,
		Type:        p.Type,
		Severity:    p.Severity,
		Title:       p.Title,
		Description: p.Description,
		Metadata:    p.Metadata,
		CreatedAt:   s.now(),
	}
	s.insights = append(s.insights, insight)
	return insight, nil
}

func (s *memStore) CountSince(_ context.Context, userID string, t models.InsightType, subject string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, &repository.StoreError{Op: "count", Err: s.countErr}
	}
	count := 0
	for _, in := range s.insights {
		if in.UserID != userID || in.Type != t || in.CreatedAt.Before(since) {
			continue
		}
		if subject != "" && in.Metadata[models.MetadataSubject] != subject {
			continue
		}
		count++
	}
	return count, nil
}

func (s *memStore) byType(userID string, t models.InsightType) []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Insight
	for _, in := range s.insights {
		if in.UserID == userID && in.Type == t {
			out = append(out, in)
		}
	}
	return out
}

func (s *memStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.insights)
}

func newTestEngine(t *testing.T, finance *fakeFinance, store *memStore) *Engine {
	t.Helper()
	return NewEngine(finance, store, EngineOptions{
		Rules:   testRules(t),
		Windows: testWindows(),
		Now:     fixedClock(),
	}, zerolog.Nop())
}

type staticUsers struct {
	ids []string
	err error
}

func (s staticUsers) ListIDs(context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

var errBackend = errors.New("backend unavailable")
