package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type Analyzer interface {
	Analyze(ctx context.Context, userID string) (string, error)
}

type AnalysisHandler struct {
	analyzer Analyzer
	logger   zerolog.Logger
}

// NewAnalysisHandler serves financial analyses. A nil analyzer means the
// feature is switched off and every request gets 503.
func NewAnalysisHandler(analyzer Analyzer, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		logger:   logger.With().Str("handler", "analysis").Logger(),
	}
}

func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "financial analysis is not enabled")
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	text, err := h.analyzer.Analyze(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("financial analysis failed")
		writeError(w, http.StatusInternalServerError, "No se pudo completar el análisis.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analisis": text})
}
