package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"music-relay/core/models"
	"music-relay/core/monitoring"
	"music-relay/core/repository"
	"music-relay/logger"

	"golang.org/x/sync/singleflight"
)

// Generator is the external generation service
type Generator interface {
	Submit(ctx context.Context, input models.GenerationInput) (*models.UpstreamPrediction, error)
	Status(ctx context.Context, id string) (*models.UpstreamPrediction, error)
}

// Materializer relays a finished asset to durable storage
type Materializer interface {
	Materialize(ctx context.Context, output models.Output, jobID string) (*models.Result, error)
}

// Tracker records submitted predictions and keeps them in sync with the
// generation service on every status poll.
type Tracker struct {
	generator Generator
	store     repository.PredictionStore
	relay     Materializer
	metrics   *monitoring.MetricsExporter
	logger    *slog.Logger
	now       func() time.Time

	inflight singleflight.Group
	locks    sync.Map // prediction id -> *sync.Mutex
}

// Option customizes a Tracker
type Option func(*Tracker)

// WithLogger sets the logger used for swallowed materialization errors
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithMetrics attaches a metrics exporter
func WithMetrics(m *monitoring.MetricsExporter) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a new prediction tracker
func NewTracker(generator Generator, store repository.PredictionStore, relay Materializer, opts ...Option) *Tracker {
	t := &Tracker{
		generator: generator,
		store:     store,
		relay:     relay,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit forwards input to the generation service and records the job.
// Nothing is recorded when the upstream call fails.
func (t *Tracker) Submit(ctx context.Context, input models.GenerationInput) (*models.Prediction, error) {
	if input.Prompt == "" {
		return nil, models.InvalidInputf("prompt is required")
	}

	up, err := t.generator.Submit(ctx, input)
	t.metrics.RecordSubmission(err)
	if err != nil {
		return nil, asUpstream("submit prediction", err)
	}

	p, err := t.update(ctx, up.ID, func(p *models.Prediction) {
		if p.Status == "" {
			p.Status = up.Status
		}
		p.Prompt = input.Prompt
		p.Lyrics = input.Lyrics
		p.ImageURL = input.ImageURL
	})
	if err != nil {
		return nil, fmt.Errorf("recording prediction %s: %w", up.ID, err)
	}

	t.logger.Info("prediction submitted", "predictionId", p.ID, "status", p.Status)
	return p, nil
}

// Refresh fetches the current upstream status of a job, merges it into the
// stored record and materializes the asset the first time the job is seen
// succeeded. Unknown ids yield models.ErrNotFound and leave the store alone.
func (t *Tracker) Refresh(ctx context.Context, id string) (*models.StatusReport, error) {
	if id == "" {
		return nil, models.InvalidInputf("prediction id is required")
	}

	up, err := t.generator.Status(ctx, id)
	t.metrics.RecordRefresh(err)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, asUpstream("get prediction", err)
	}

	p, err := t.update(ctx, id, func(p *models.Prediction) {
		p.Status = up.Status
		if up.Status == models.StatusFailed && up.Error != nil {
			p.Error = up.Error
		}
	})
	if err != nil {
		return nil, err
	}

	if p.Status == models.StatusSucceeded && p.Result == nil && !up.Output.IsZero() {
		result, err := t.materialize(ctx, id, up.Output)
		if err != nil {
			t.logger.Error("materialization failed", logger.Err(err), "predictionId", id)
		} else {
			p.Result = result
		}
	}

	logs := up.Logs
	if logs == nil {
		logs = []string{}
	}
	return &models.StatusReport{Prediction: p, Logs: logs}, nil
}

// materialize relays the asset at most once per job. Concurrent pollers for
// the same id share one relay call, and a result already in the store wins.
func (t *Tracker) materialize(ctx context.Context, id string, output models.Output) (*models.Result, error) {
	v, err, _ := t.inflight.Do(id, func() (interface{}, error) {
		if current, err := t.store.Get(ctx, id); err == nil && current.Result != nil {
			return current.Result, nil
		}

		result, err := t.relay.Materialize(ctx, output, id)
		t.metrics.RecordMaterialization(err)
		if err != nil {
			return nil, err
		}

		latest, err := t.update(ctx, id, func(p *models.Prediction) {
			if p.Result == nil {
				p.Result = result
			}
		})
		if err != nil {
			return nil, err
		}
		result = latest.Result

		t.logger.Info("prediction materialized", "predictionId", id, "audioUrl", result.AudioURL)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Result), nil
}

// update applies fn to the stored record under the job's lock, creating the
// record when the poll raced ahead of Submit recording it.
func (t *Tracker) update(ctx context.Context, id string, fn func(p *models.Prediction)) (*models.Prediction, error) {
	mu, _ := t.locks.LoadOrStore(id, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	p, err := t.store.Get(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		p = &models.Prediction{ID: id, CreatedAt: t.now().UTC()}
	case err != nil:
		return nil, fmt.Errorf("loading prediction %s: %w", id, err)
	}

	fn(p)
	p.UpdatedAt = t.now().UTC()
	if err := t.store.Set(ctx, p); err != nil {
		return nil, fmt.Errorf("saving prediction %s: %w", id, err)
	}
	return p, nil
}

func asUpstream(op string, err error) error {
	if errors.Is(err, models.ErrUpstream) {
		return err
	}
	return &models.UpstreamError{Op: op, Err: err}
}
