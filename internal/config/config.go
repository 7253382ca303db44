package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stanstork/sasper-insights/internal/models"
)

type InsightsConfig struct {
	Concurrency int `mapstructure:"concurrency"`

	Locale         string `mapstructure:"locale"`
	Currency       string `mapstructure:"currency"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string `mapstructure:"timezone"`

	WeeklyChangeThreshold   float64 `mapstructure:"weekly_change_threshold"`
	SavingsMinDifference    float64 `mapstructure:"savings_min_difference"`
	BudgetProgressThreshold float64 `mapstructure:"budget_progress_threshold"`
	UpcomingDaysAhead       int     `mapstructure:"upcoming_days_ahead"`
	LowBalanceThreshold     float64 `mapstructure:"low_balance_threshold"`

	// RecencyDays maps an insight type to its dedup window in days. Zero
	// disables the guard for that type.
	RecencyDays map[string]int `mapstructure:"recency_days"`
}

// RecencyWindow returns the dedup window configured for t.
func (c InsightsConfig) RecencyWindow(t models.InsightType) time.Duration {
	return time.Duration(c.RecencyDays[string(t)]) * 24 * time.Hour
}

type TemporalConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	HostPort        string        `mapstructure:"host_port"`
	Namespace       string        `mapstructure:"namespace"`
	TaskQueue       string        `mapstructure:"task_queue"`
	InsightsCron    string        `mapstructure:"insights_cron"`
	RemindersCron   string        `mapstructure:"reminders_cron"`
	ActivityTimeout time.Duration `mapstructure:"activity_timeout"`
}

type FirebaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AnalysisConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	TransactionLimit int           `mapstructure:"transaction_limit"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type Config struct {
	DatabaseURL    string         `mapstructure:"database_url"`
	ServerPort     string         `mapstructure:"server_port"`
	LogLevel       string         `mapstructure:"log_level"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	Insights       InsightsConfig `mapstructure:"insights"`
	Temporal       TemporalConfig `mapstructure:"temporal"`
	Firebase       FirebaseConfig `mapstructure:"firebase"`
	Analysis       AnalysisConfig `mapstructure:"analysis"`
}

// Location resolves the configured time zone used for calendar-day math.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Insights.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetDefault("insights.concurrency", 4)
	v.SetDefault("insights.locale", "es-MX")
	v.SetDefault("insights.currency", "MXN")
	v.SetDefault("insights.currency_symbol", "$")
	v.SetDefault("insights.timezone", "America/Mexico_City")
	v.SetDefault("insights.weekly_change_threshold", 10)
	v.SetDefault("insights.savings_min_difference", 1)
	v.SetDefault("insights.budget_progress_threshold", 1.0)
	v.SetDefault("insights.upcoming_days_ahead", 3)
	v.SetDefault("insights.low_balance_threshold", 50)
	v.SetDefault("insights.recency_days."+string(models.InsightWeeklySpending), 7)
	v.SetDefault("insights.recency_days."+string(models.InsightTopCategory), 30)
	v.SetDefault("insights.recency_days."+string(models.InsightMonthlySavings), 30)
	v.SetDefault("insights.recency_days."+string(models.InsightBudgetExceeded), 7)
	v.SetDefault("insights.recency_days."+string(models.InsightUpcomingPayment), 4)
	v.SetDefault("insights.recency_days."+string(models.InsightLowBalance), 7)
	v.SetDefault("insights.recency_days."+string(models.InsightGoalMilestone), 0)

	v.SetDefault("temporal.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "SASPER_INSIGHTS")
	v.SetDefault("temporal.insights_cron", "0 6 * * *")
	v.SetDefault("temporal.reminders_cron", "0 9 * * *")
	v.SetDefault("temporal.activity_timeout", 30*time.Minute)

	v.SetDefault("firebase.enabled", false)
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("analysis.enabled", false)
	v.SetDefault("analysis.base_url", "https://api.openai.com/v1")
	v.SetDefault("analysis.api_key", "")
	v.SetDefault("analysis.model", "gpt-4o-mini")
	v.SetDefault("analysis.transaction_limit", 50)
	v.SetDefault("analysis.timeout", 60*time.Second)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yaml from the current directory or ./config, applies
// environment overrides and exits the process when the result is invalid.
func Load() *Config {
	v := newViper()
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("Error reading config file: %v", err)
		}
	}

	cfg, err := build(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("database_url must be set")
	}
	if c.Insights.Concurrency <= 0 {
		c.Insights.Concurrency = 1
	}
	if c.Insights.UpcomingDaysAhead < 0 {
		return fmt.Errorf("insights.upcoming_days_ahead must not be negative, got %d", c.Insights.UpcomingDaysAhead)
	}
	for key, days := range c.Insights.RecencyDays {
		if !models.InsightType(key).IsValid() {
			return fmt.Errorf("insights.recency_days: unknown insight type %q", key)
		}
		if days < 0 {
			return fmt.Errorf("insights.recency_days.%s must not be negative", key)
		}
	}
	if _, err := c.Location(); err != nil {
		return errors.Wrapf(err, "insights.timezone %q", c.Insights.Timezone)
	}
	if c.Firebase.Enabled && strings.TrimSpace(c.Firebase.ProjectID) == "" {
		return errors.New("firebase.project_id is required when firebase is enabled")
	}
	if c.Analysis.Enabled && strings.TrimSpace(c.Analysis.APIKey) == "" {
		return errors.New("analysis.api_key is required when analysis is enabled")
	}
	if c.Analysis.TransactionLimit <= 0 {
		c.Analysis.TransactionLimit = 50
	}
	return nil
}
