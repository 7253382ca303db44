package temporal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/config"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
)

type schedule struct {
	id       string
	workflow string
	prefix   string
	cron     string
}

// EnsureSchedules creates the daily insights and reminders schedules. A
// schedule that already exists is left as it is.
func EnsureSchedules(ctx context.Context, sc client.ScheduleClient, cfg config.TemporalConfig, timezone string, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "temporal_schedules").Logger()

	taskQueue := cfg.TaskQueue
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	params := RunParams{ActivityTimeout: cfg.ActivityTimeout}

	for _, s := range []schedule{
		{id: InsightsScheduleID, workflow: InsightsWorkflowName, prefix: InsightsWorkflowIDPrefix, cron: cfg.InsightsCron},
		{id: RemindersScheduleID, workflow: RemindersWorkflowName, prefix: RemindersWorkflowIDPrefix, cron: cfg.RemindersCron},
	} {
		if s.cron == "" {
			logger.Info().Str("schedule_id", s.id).Msg("no cron configured, schedule skipped")
			continue
		}

		_, err := sc.Create(ctx, client.ScheduleOptions{
			ID: s.id,
			Spec: client.ScheduleSpec{
				CronExpressions: []string{s.cron},
				TimeZoneName:    timezone,
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        s.prefix + "scheduled",
				Workflow:  s.workflow,
				Args:      []interface{}{params},
				TaskQueue: taskQueue,
			},
		})
		switch {
		case errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning):
			logger.Debug().Str("schedule_id", s.id).Msg("schedule already exists")
		case err != nil:
			return errors.Wrapf(err, "create schedule %s", s.id)
		default:
			logger.Info().Str("schedule_id", s.id).Str("cron", s.cron).Msg("schedule created")
		}
	}
	return nil
}
