package insights

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/models"
)

// InsightCounter is the slice of the insight store the guard reads from.
type InsightCounter interface {
	CountSince(ctx context.Context, userID string, insightType models.InsightType, subject string, since time.Time) (int, error)
}

// RecencyGuard suppresses insights already recorded inside their window. It
// is a read followed by a separate insert, so overlapping batch runs for the
// same user can still both write.
type RecencyGuard struct {
	store  InsightCounter
	now    func() time.Time
	logger zerolog.Logger
}

func NewRecencyGuard(store InsightCounter, now func() time.Time, logger zerolog.Logger) *RecencyGuard {
	if now == nil {
		now = time.Now
	}
	return &RecencyGuard{
		store:  store,
		now:    now,
		logger: logger.With().Str("component", "recency_guard").Logger(),
	}
}

// HasRecent reports whether an insight of insightType (and subject, when not
// empty) exists for userID within window. A non-positive window never
// suppresses. Lookup failures report true.
func (g *RecencyGuard) HasRecent(ctx context.Context, userID string, insightType models.InsightType, subject string, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	since := g.now().Add(-window)
	count, err := g.store.CountSince(ctx, userID, insightType, subject, since)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Str("insight_type", string(insightType)).
			Str("subject", subject).
			Msg("recency lookup failed, suppressing insight")
		return true
	}
	return count > 0
}
