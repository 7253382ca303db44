package reminders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/format"
	"github.com/stanstork/sasper-insights/internal/models"
	"github.com/stanstork/sasper-insights/internal/notification"
	"golang.org/x/sync/errgroup"
)

const (
	titleExpense = "Recordatorio de Próximo Pago"
	titleIncome  = "Recordatorio de Próximo Ingreso"
	targetScreen = "/recurring_transactions"

	sendConcurrency = 8
)

type ReminderLister interface {
	DueOn(ctx context.Context, day string) ([]models.PaymentReminder, error)
}

// Report counts the outcome of one reminder run.
type Report struct {
	Day     string `json:"day"`
	Found   int    `json:"found"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

type Service struct {
	reminders ReminderLister
	notifier  notification.Notifier
	format    *format.Formatter
	location  *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(reminders ReminderLister, notifier notification.Notifier, f *format.Formatter, loc *time.Location, now func() time.Time, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		reminders: reminders,
		notifier:  notifier,
		format:    f,
		location:  loc,
		now:       now,
		logger:    logger.With().Str("component", "payment_reminders").Logger(),
	}
}

// SendDueTomorrow pushes a reminder for every recurring transaction due on
// the next calendar day in the service's location. Only the lookup can fail
// the run; individual sends are counted.
func (s *Service) SendDueTomorrow(ctx context.Context) (Report, error) {
	day := s.now().In(s.location).AddDate(0, 0, 1).Format("2006-01-02")
	report := Report{Day: day}

	due, err := s.reminders.DueOn(ctx, day)
	if err != nil {
		return report, errors.Wrapf(err, "list reminders due %s", day)
	}
	report.Found = len(due)
	if len(due) == 0 {
		s.logger.Info().Str("day", day).Msg("no reminders to send")
		return report, nil
	}
	s.logger.Info().Str("day", day).Int("count", len(due)).Msg("sending payment reminders")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(sendConcurrency)
	for _, reminder := range due {
		if reminder.FCMToken == nil || *reminder.FCMToken == "" {
			s.logger.Warn().
				Str("user_id", reminder.UserID).
				Str("description", reminder.Description).
				Msg("missing device token, skipping reminder")
			report.Skipped++
			continue
		}
		g.Go(func() error {
			err := s.notifier.Notify(ctx, s.message(reminder))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error().
					Err(err).
					Str("user_id", reminder.UserID).
					Str("description", reminder.Description).
					Msg("failed to send reminder")
				report.Failed++
				return nil
			}
			report.Sent++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info().
		Int("sent", report.Sent).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("payment reminders finished")
	return report, nil
}

func (s *Service) message(r models.PaymentReminder) notification.Message {
	title := titleIncome
	if r.IsExpense() {
		title = titleExpense
	}
	body := fmt.Sprintf("Tu próximo %s es: %s. Fecha: %s.",
		strings.ToLower(r.Kind), r.Description, s.format.Day(r.NextDueDate))
	return notification.Message{
		Token: *r.FCMToken,
		Title: title,
		Body:  body,
		Data:  map[string]string{"screen": targetScreen},
	}
}
