package repository

import (
	"context"
	"fmt"
	"sync"

	"music-relay/core/models"
)

// MemoryStore is a process-local PredictionStore. Records live as long as
// the process does.
type MemoryStore struct {
	mu          sync.RWMutex
	predictions map[string]*models.Prediction
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{predictions: make(map[string]*models.Prediction)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.predictions[id]
	if !ok {
		return nil, fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Set(ctx context.Context, prediction *models.Prediction) error {
	if prediction == nil || prediction.ID == "" {
		return fmt.Errorf("prediction id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.predictions[prediction.ID] = prediction.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.predictions, id)
	return nil
}

// Len returns the number of tracked predictions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.predictions)
}
