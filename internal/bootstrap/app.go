package bootstrap

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sasper-insights/internal/analysis"
	"github.com/stanstork/sasper-insights/internal/config"
	"github.com/stanstork/sasper-insights/internal/format"
	"github.com/stanstork/sasper-insights/internal/insights"
	"github.com/stanstork/sasper-insights/internal/models"
	"github.com/stanstork/sasper-insights/internal/notification"
	"github.com/stanstork/sasper-insights/internal/reminders"
	"github.com/stanstork/sasper-insights/internal/repository"
)

// Services is everything the binaries drive. Analysis is nil when the
// financial analysis endpoint is disabled.
type Services struct {
	Batch     *insights.Batch
	Insights  repository.InsightRepository
	Reminders *reminders.Service
	Analysis  *analysis.Service
}

// NewLogger builds the console logger shared by the binaries.
func NewLogger(out io.Writer, level string) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return logger
}

// OpenDB connects to Postgres and verifies the connection.
func OpenDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// Rules converts the configured thresholds into evaluator rules.
func Rules(cfg config.InsightsConfig, f *format.Formatter) insights.Rules {
	rules := insights.DefaultRules(f)
	rules.WeeklyChangeThreshold = decimal.NewFromFloat(cfg.WeeklyChangeThreshold)
	rules.SavingsMinDifference = decimal.NewFromFloat(cfg.SavingsMinDifference)
	rules.BudgetProgressThreshold = decimal.NewFromFloat(cfg.BudgetProgressThreshold)
	rules.LowBalanceThreshold = decimal.NewFromFloat(cfg.LowBalanceThreshold)
	rules.UpcomingDaysAhead = cfg.UpcomingDaysAhead
	return rules
}

// Windows returns the recency window of every insight type that has one.
func Windows(cfg config.InsightsConfig) map[models.InsightType]time.Duration {
	windows := make(map[models.InsightType]time.Duration, len(models.InsightTypes))
	for _, t := range models.InsightTypes {
		if w := cfg.RecencyWindow(t); w > 0 {
			windows[t] = w
		}
	}
	return windows
}

// NewServices wires repositories, the insight engine and the reminder job
// over db.
func NewServices(cfg *config.Config, db *sql.DB, notifier notification.Notifier, logger zerolog.Logger) (*Services, error) {
	f, err := format.New(cfg.Insights.Locale, cfg.Insights.Currency, cfg.Insights.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, errors.Wrap(err, "load timezone")
	}

	financeRepo := repository.NewFinanceRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	userRepo := repository.NewUserRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	engine := insights.NewEngine(financeRepo, insightRepo, insights.EngineOptions{
		Rules:    Rules(cfg.Insights, f),
		Windows:  Windows(cfg.Insights),
		Location: loc,
	}, logger)

	services := &Services{
		Batch:     insights.NewBatch(userRepo, engine, cfg.Insights.Concurrency, logger),
		Insights:  insightRepo,
		Reminders: reminders.NewService(reminderRepo, notifier, f, loc, nil, logger),
	}

	if cfg.Analysis.Enabled {
		completer, err := analysis.NewOpenAIClient(cfg.Analysis)
		if err != nil {
			return nil, errors.Wrap(err, "configure analysis client")
		}
		logger.Info().Str("client", completer.String()).Msg("financial analysis enabled")
		services.Analysis = analysis.NewService(repository.NewTransactionRepository(db), completer, cfg.Analysis.TransactionLimit, logger)
	}
	return services, nil
}
