package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/spf13/pflag"
	"github.com/stanstork/sasper-insights/internal/bootstrap"
	"github.com/stanstork/sasper-insights/internal/config"
	"github.com/stanstork/sasper-insights/internal/migration"
	"github.com/stanstork/sasper-insights/internal/notification"
)

const (
	jobInsights  = "insights"
	jobReminders = "reminders"
)

// batch runs one insights or reminders job and prints its result as JSON.
func main() {
	job := pflag.StringP("job", "j", jobInsights, "job to run: insights or reminders")
	configPath := pflag.StringP("config", "c", "", "path to a config file (defaults to ./config.yaml)")
	migrate := pflag.Bool("migrate", false, "apply database migrations before running")
	pflag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	} else {
		cfg = config.Load()
	}

	logger := bootstrap.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	if *migrate {
		if err := migration.RunMigrations(db, logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	notifier, err := notification.NewFirebaseNotifier(ctx, cfg.Firebase, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to configure Firebase notifier")
	}
	services, err := bootstrap.NewServices(cfg, db, notifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build services")
	}

	var result interface{}
	switch *job {
	case jobInsights:
		result, err = services.Batch.Run(ctx)
	case jobReminders:
		result, err = services.Reminders.SendDueTomorrow(ctx)
	default:
		logger.Fatal().Str("job", *job).Msg("Unknown job")
	}
	if err != nil {
		logger.Error().Err(err).Str("job", *job).Msg("Job failed")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write result")
	}
}
