package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry as shown to the analysis prompt.
type Transaction struct {
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Kind        string          `json:"type" db:"type"`
	Category    string          `json:"category,omitempty" db:"category"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
