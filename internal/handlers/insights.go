package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/insights"
	"github.com/stanstork/sasper-insights/internal/models"
)

const defaultListLimit = 25

type BatchRunner interface {
	Run(ctx context.Context) (insights.Summary, error)
}

type InsightLister interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Insight, error)
}

type InsightsHandler struct {
	batch  BatchRunner
	store  InsightLister
	logger zerolog.Logger
}

func NewInsightsHandler(batch BatchRunner, store InsightLister, logger zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{
		batch:  batch,
		store:  store,
		logger: logger.With().Str("handler", "insights").Logger(),
	}
}

// Generate runs the insight batch for every user and reports the summary.
// The run is detached from the request so a dropped client does not abort it.
func (h *InsightsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.batch.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Msg("insight generation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().
		Int("users", summary.UsersProcessed).
		Int("created", summary.InsightsCreated).
		Int("failures", summary.Failures).
		Msg("insight generation finished")
	writeJSON(w, http.StatusOK, summary)
}

func (h *InsightsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userID"])
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	list, err := h.store.ListRecent(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list insights")
		writeError(w, http.StatusInternalServerError, "failed to list insights")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"insights": list,
	})
}
