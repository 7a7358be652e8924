package repository

import (
	"context"

	"music-relay/core/models"
)

// PredictionStore keeps the last known state of each prediction, keyed by
// the id the generation service assigned. Get returns models.ErrNotFound
// for unknown ids.
type PredictionStore interface {
	Get(ctx context.Context, id string) (*models.Prediction, error)
	Set(ctx context.Context, prediction *models.Prediction) error
	Delete(ctx context.Context, id string) error
}
