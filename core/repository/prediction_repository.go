package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"music-relay/core/models"
)

// PredictionRepository is a Postgres-backed PredictionStore
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Get retrieves a prediction by ID
func (r *PredictionRepository) Get(ctx context.Context, id string) (*models.Prediction, error) {
	query := `
		SELECT id, status, prompt, lyrics, image_url, result, error, created_at, updated_at
		FROM predictions
		WHERE id = $1
	`

	var p models.Prediction
	var resultJSON sql.NullString
	var errorJSON sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Status,
		&p.Prompt,
		&p.Lyrics,
		&p.ImageURL,
		&resultJSON,
		&errorJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching prediction %s: %w", id, err)
	}

	if resultJSON.Valid {
		var result models.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decoding result of %s: %w", id, err)
		}
		p.Result = &result
	}
	if errorJSON.Valid {
		if err := json.Unmarshal([]byte(errorJSON.String), &p.Error); err != nil {
			return nil, fmt.Errorf("decoding error of %s: %w", id, err)
		}
	}

	return &p, nil
}

// Set upserts a prediction. Input fields are only filled in while empty and
// an existing result is never overwritten.
func (r *PredictionRepository) Set(ctx context.Context, p *models.Prediction) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("prediction id is required")
	}

	query := `
		INSERT INTO predictions (id, status, prompt, lyrics, image_url, result, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			prompt = COALESCE(NULLIF(predictions.prompt, ''), EXCLUDED.prompt),
			lyrics = COALESCE(NULLIF(predictions.lyrics, ''), EXCLUDED.lyrics),
			image_url = COALESCE(NULLIF(predictions.image_url, ''), EXCLUDED.image_url),
			result = COALESCE(predictions.result, EXCLUDED.result),
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`

	resultJSON, err := nullableJSON(p.Result)
	if err != nil {
		return fmt.Errorf("encoding result of %s: %w", p.ID, err)
	}
	errorJSON, err := nullableJSON(p.Error)
	if err != nil {
		return fmt.Errorf("encoding error of %s: %w", p.ID, err)
	}

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Status,
		p.Prompt,
		p.Lyrics,
		p.ImageURL,
		resultJSON,
		errorJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving prediction %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a prediction
func (r *PredictionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting prediction %s: %w", id, err)
	}
	return nil
}

func nullableJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if r, ok := v.(*models.Result); ok && r == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
