package models

import "time"

// TransactionKindExpense marks a recurring expense; anything else is income.
const TransactionKindExpense = "Gasto"

// PaymentReminder is a recurring transaction due on a given day, joined with
// the owner's device token.
type PaymentReminder struct {
	UserID      string    `json:"user_id" db:"user_id"`
	Description string    `json:"description" db:"description"`
	Kind        string    `json:"type" db:"type"`
	NextDueDate time.Time `json:"next_due_date" db:"next_due_date"`
	FCMToken    *string   `json:"fcm_token,omitempty" db:"fcm_token"`
}

func (r PaymentReminder) IsExpense() bool {
	return r.Kind == TransactionKindExpense
}
