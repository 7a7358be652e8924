package replicate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"music-relay/core/models"

	replicatego "github.com/replicate/replicate-go"
)

// DefaultModel is the generation model used when none is configured
const DefaultModel = "minimax/music-1.5"

// predictionAPI is the part of the replicate-go client this package uses
type predictionAPI interface {
	CreatePredictionWithModel(ctx context.Context, modelOwner string, modelName string, input replicatego.PredictionInput, webhook *replicatego.Webhook, stream bool) (*replicatego.Prediction, error)
	GetPrediction(ctx context.Context, id string) (*replicatego.Prediction, error)
}

// Client submits music generation jobs to Replicate
type Client struct {
	api   predictionAPI
	owner string
	name  string
}

// NewClient creates a Replicate client for model ("owner/name"). baseURL is
// optional and only overrides the API endpoint. Requests go through
// httpClient when it is set and are never retried.
func NewClient(token, model, baseURL string, httpClient *http.Client) (*Client, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	opts := []replicatego.ClientOption{
		replicatego.WithToken(token),
		replicatego.WithRetryPolicy(1, &replicatego.ConstantBackoff{}),
	}
	if baseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, replicatego.WithHTTPClient(httpClient))
	}
	api, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating replicate client: %w", err)
	}
	return newClient(api, model)
}

func newClient(api predictionAPI, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	owner, name, ok := strings.Cut(model, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("model must be owner/name, got %q", model)
	}
	return &Client{api: api, owner: owner, name: name}, nil
}

// Submit creates a prediction without waiting for it to finish
func (c *Client) Submit(ctx context.Context, input models.GenerationInput) (*models.UpstreamPrediction, error) {
	prediction, err := c.api.CreatePredictionWithModel(ctx, c.owner, c.name, replicatego.PredictionInput(input.Params()), nil, false)
	if err != nil {
		return nil, wrapError("create prediction", err)
	}
	return toUpstream(prediction), nil
}

// Status fetches the current state of a prediction
func (c *Client) Status(ctx context.Context, id string) (*models.UpstreamPrediction, error) {
	prediction, err := c.api.GetPrediction(ctx, id)
	if err != nil {
		return nil, wrapError("get prediction "+id, err)
	}
	return toUpstream(prediction), nil
}

func toUpstream(p *replicatego.Prediction) *models.UpstreamPrediction {
	up := &models.UpstreamPrediction{
		ID:     p.ID,
		Status: models.PredictionStatus(p.Status),
		Output: models.OutputFromJSON(p.Output),
		Error:  p.Error,
	}
	if p.Logs != nil {
		up.Logs = splitLogs(*p.Logs)
	}
	return up
}

func splitLogs(logs string) []string {
	logs = strings.TrimRight(logs, "\n")
	if logs == "" {
		return []string{}
	}
	return strings.Split(logs, "\n")
}

// wrapError maps Replicate API errors onto the relay's error kinds. A 404
// (or a 422 for a malformed id) means the service does not know the job.
func wrapError(op string, err error) error {
	var apiErr *replicatego.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound || (apiErr.Status == http.StatusUnprocessableEntity && strings.HasPrefix(op, "get ")) {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		msg := apiErr.Detail
		if msg == "" {
			msg = apiErr.Title
		}
		return &models.UpstreamError{Op: op, StatusCode: apiErr.Status, Message: msg, Err: err}
	}
	return &models.UpstreamError{Op: op, Err: err}
}
