package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sasper-insights/internal/models"
)

const maxTransactions = 200

type TransactionRepository interface {
	// Latest returns up to limit of the user's transactions, newest first.
	Latest(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Latest(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxTransactions {
		limit = maxTransactions
	}

	const query = `
		SELECT description, amount, type, category, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query transactions")
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var (
			tx          models.Transaction
			description sql.NullString
			amount      decimal.NullDecimal
			category    sql.NullString
		)
		if err := rows.Scan(&description, &amount, &tx.Kind, &category, &tx.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		tx.Description = description.String
		tx.Amount = amount.Decimal
		tx.Category = category.String
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate transactions")
	}
	return txs, nil
}
