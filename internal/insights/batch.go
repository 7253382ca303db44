package insights

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FatalError aborts a whole batch run. Only the user-list fetch produces it.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

type UserLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type UserEvaluator interface {
	EvaluateUser(ctx context.Context, userID string) []Result
}

// Summary is the outcome of a batch run.
type Summary struct {
	Message            string `json:"message"`
	UsersProcessed     int    `json:"users_processed"`
	InsightsCreated    int    `json:"insights_created"`
	InsightsSuppressed int    `json:"insights_suppressed"`
	Failures           int    `json:"failures"`
}

func (s *Summary) add(results []Result) {
	for _, r := range results {
		s.InsightsCreated += r.Created
		s.InsightsSuppressed += r.Suppressed
		if r.Failed() {
			s.Failures++
		}
	}
}

// Batch generates insights for every user.
type Batch struct {
	users       UserLister
	evaluator   UserEvaluator
	concurrency int
	logger      zerolog.Logger
}

func NewBatch(users UserLister, evaluator UserEvaluator, concurrency int, logger zerolog.Logger) *Batch {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Batch{
		users:       users,
		evaluator:   evaluator,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "insight_batch").Logger(),
	}
}

// Run fetches all users and evaluates them on a bounded pool. It returns a
// *FatalError when the user list cannot be fetched; every other failure is
// counted in the summary.
func (b *Batch) Run(ctx context.Context) (Summary, error) {
	ids, err := b.users.ListIDs(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to fetch user list")
		return Summary{}, &FatalError{Err: errors.Wrap(err, "fetch users")}
	}
	b.logger.Info().Int("users", len(ids)).Int("concurrency", b.concurrency).Msg("starting insight analysis")

	var (
		mu      sync.Mutex
		summary Summary
	)
	// Evaluations report failures through their results, never through g.
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			results := b.evaluator.EvaluateUser(ctx, id)
			mu.Lock()
			summary.add(results)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.UsersProcessed = len(ids)
	summary.Message = fmt.Sprintf("Análisis de insights completado para %d usuarios.", len(ids))
	b.logger.Info().
		Int("users", summary.UsersProcessed).
		Int("created", summary.InsightsCreated).
		Int("suppressed", summary.InsightsSuppressed).
		Int("failures", summary.Failures).
		Msg("insight analysis completed")
	return summary, nil
}
