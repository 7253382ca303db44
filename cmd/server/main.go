package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/bootstrap"
	"github.com/stanstork/sasper-insights/internal/config"
	"github.com/stanstork/sasper-insights/internal/handlers"
	"github.com/stanstork/sasper-insights/internal/middleware"
	"github.com/stanstork/sasper-insights/internal/migration"
	"github.com/stanstork/sasper-insights/internal/notification"
	"github.com/stanstork/sasper-insights/internal/routes"
	"github.com/stanstork/sasper-insights/internal/temporal"
	"github.com/stanstork/sasper-insights/internal/temporal/activities"
	"github.com/stanstork/sasper-insights/internal/temporal/workflows"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	services       *bootstrap.Services
	temporalClient tc.Client
	logger         zerolog.Logger
}

func main() {
	// Load configuration.
	cfg := config.Load()

	// Set up structured, level-based logging.
	logger := bootstrap.NewLogger(os.Stdout, cfg.LogLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	ctx := context.Background()

	// Initialize database connection.
	db, err := bootstrap.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	// Run database migrations.
	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Push delivery for payment reminders.
	notifier, err := notification.NewFirebaseNotifier(ctx, cfg.Firebase, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure Firebase notifier")
	}
	logger.Info().Str("notifier", notifier.String()).Msg("Notifier configured")

	services, err := bootstrap.NewServices(cfg, db, notifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build services")
	}

	app := &application{
		config:   cfg,
		db:       db,
		services: services,
		logger:   logger,
	}

	// Scheduled runs are optional; the HTTP trigger works without Temporal.
	var temporalWorker worker.Worker
	if cfg.Temporal.Enabled {
		app.temporalClient, err = tc.Dial(tc.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporal.NewZerologAdapter(logger),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal client")
		}
		defer app.temporalClient.Close()

		if err := temporal.EnsureSchedules(ctx, app.temporalClient.ScheduleClient(), cfg.Temporal, cfg.Insights.Timezone, logger); err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal schedules")
		}
		temporalWorker = app.startTemporalWorker(logger)
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(loggedRouter)
	recovered := h.RecoveryHandler(h.PrintRecoveryStack(true), h.RecoveryLogger(recoveryLogger{logger}))(corsHandler)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(recovered, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	insightsHandler := handlers.NewInsightsHandler(app.services.Batch, app.services.Insights, logger)

	var analyzer handlers.Analyzer
	if app.services.Analysis != nil {
		analyzer = app.services.Analysis
	}
	analysisHandler := handlers.NewAnalysisHandler(analyzer, logger)

	return routes.NewRouter(insightsHandler, analysisHandler)
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Batch:     app.services.Batch,
		Reminders: app.services.Reminders,
	}

	taskQueue := app.config.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = temporal.DefaultTaskQueue
	}
	w := worker.New(app.temporalClient, taskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.GenerateInsightsWorkflow, workflow.RegisterOptions{Name: temporal.InsightsWorkflowName})
	w.RegisterWorkflowWithOptions(workflows.PaymentRemindersWorkflow, workflow.RegisterOptions{Name: temporal.RemindersWorkflowName})
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Str("task_queue", taskQueue).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Interface("panic", v).Msg("Recovered from handler panic")
}
