package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stanstork/sasper-insights/internal/models"
)

// InsightRepository is the append-only insight store. Every error it returns
// is a *StoreError.
type InsightRepository interface {
	Insert(ctx context.Context, params CreateInsightParams) (models.Insight, error)
	// CountSince counts insights of insightType for userID created at or after
	// since. A non-empty subject narrows the count to insights whose metadata
	// subject matches.
	CountSince(ctx context.Context, userID string, insightType models.InsightType, subject string, since time.Time) (int, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Insight, error)
}

type insightRepository struct {
	db *sql.DB
}

type CreateInsightParams struct {
	UserID      string
	Type        models.InsightType
	Severity    models.InsightSeverity
	Title       string
	Description string
	Metadata    map[string]interface{}
}

func (p CreateInsightParams) validate() error {
	switch {
	case strings.TrimSpace(p.UserID) == "":
		return errors.New("user id is required")
	case !p.Type.IsValid():
		return errors.Errorf("unknown insight type %q", p.Type)
	case !p.Severity.IsValid():
		return errors.Errorf("unknown severity %q", p.Severity)
	case strings.TrimSpace(p.Title) == "":
		return errors.New("title is required")
	case strings.TrimSpace(p.Description) == "":
		return errors.New("description is required")
	}
	return nil
}

func NewInsightRepository(db *sql.DB) InsightRepository {
	return &insightRepository{db: db}
}

func (r *insightRepository) Insert(ctx context.Context, params CreateInsightParams) (models.Insight, error) {
	const query = `
		INSERT INTO insights (id, user_id, type, severity, title, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, type, severity, title, description, metadata, created_at
	`
	if err := params.validate(); err != nil {
		return models.Insight{}, &StoreError{Op: "insert", Err: err}
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return models.Insight{}, &StoreError{Op: "insert", Err: errors.Wrap(err, "marshal metadata")}
	}

	row := r.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		strings.TrimSpace(params.UserID),
		string(params.Type),
		string(params.Severity),
		params.Title,
		params.Description,
		raw,
	)
	insight, err := scanInsight(row)
	if err != nil {
		return models.Insight{}, &StoreError{Op: "insert", Err: err}
	}
	return insight, nil
}

func (r *insightRepository) CountSince(ctx context.Context, userID string, insightType models.InsightType, subject string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM insights
		WHERE user_id = $1
		  AND type = $2
		  AND created_at >= $3
		  AND ($4::text = '' OR metadata->>'subject' = $4::text)
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(userID), string(insightType), since, subject).Scan(&count)
	if err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return count, nil
}

func (r *insightRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.Insight, error) {
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	const query = `
		SELECT id, user_id, type, severity, title, description, metadata, created_at
		FROM insights
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	insights := []models.Insight{}
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return insights, nil
}

func scanInsight(scanner rowScanner) (models.Insight, error) {
	var (
		insight     models.Insight
		metadataRaw []byte
	)
	if err := scanner.Scan(
		&insight.ID,
		&insight.UserID,
		&insight.Type,
		&insight.Severity,
		&insight.Title,
		&insight.Description,
		&metadataRaw,
		&insight.CreatedAt,
	); err != nil {
		return models.Insight{}, err
	}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &insight.Metadata); err != nil {
			return models.Insight{}, errors.Wrap(err, "decode metadata")
		}
	}
	return insight, nil
}
