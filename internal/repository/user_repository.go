package repository

import (
	"context"
	"database/sql"
)

type UserRepository interface {
	// ListIDs returns the id of every profile.
	ListIDs(ctx context.Context) ([]string, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := u.db.QueryContext(ctx, `SELECT id FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
