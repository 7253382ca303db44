package repository

import (
	"context"
	"database/sql"

	"github.com/stanstork/sasper-insights/internal/models"
)

type ReminderRepository interface {
	// DueOn lists recurring transactions whose next due date is day, joined
	// with the owner's device token.
	DueOn(ctx context.Context, day string) ([]models.PaymentReminder, error)
}

type reminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *sql.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) DueOn(ctx context.Context, day string) ([]models.PaymentReminder, error) {
	const query = `
		SELECT rt.user_id, rt.description, rt.type, rt.next_due_date, p.fcm_token
		FROM recurring_transactions rt
		JOIN profiles p ON p.id = rt.user_id
		WHERE rt.next_due_date = $1::date
		ORDER BY rt.user_id, rt.description
	`
	rows, err := r.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []models.PaymentReminder
	for rows.Next() {
		var (
			reminder models.PaymentReminder
			token    sql.NullString
		)
		if err := rows.Scan(&reminder.UserID, &reminder.Description, &reminder.Kind, &reminder.NextDueDate, &token); err != nil {
			return nil, err
		}
		if token.Valid && token.String != "" {
			t := token.String
			reminder.FCMToken = &t
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}
