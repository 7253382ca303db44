package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stanstork/sasper-insights/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(insights *handlers.InsightsHandler, analysis *handlers.AnalysisHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Batch trigger, any method.
	router.HandleFunc("/api/insights/generate", insights.Generate)
	router.HandleFunc("/api/users/{userID}/insights", insights.List).Methods(http.MethodGet)
	router.HandleFunc("/api/analisis-financiero", analysis.Analyze).Methods(http.MethodGet)

	return router
}
