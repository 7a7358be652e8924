package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"music-relay/core/input"
	"music-relay/core/models"

	"github.com/gorilla/mux"
)

const maxFormMemory = 1 << 20

// PredictionService submits and refreshes generation jobs
type PredictionService interface {
	Submit(ctx context.Context, in models.GenerationInput) (*models.Prediction, error)
	Refresh(ctx context.Context, id string) (*models.StatusReport, error)
}

// MusicHandler handles generation requests and status polls
type MusicHandler struct {
	predictions PredictionService
}

// NewMusicHandler creates a new music handler
func NewMusicHandler(predictions PredictionService) *MusicHandler {
	return &MusicHandler{predictions: predictions}
}

// GenerateResponse is returned once a job has been accepted upstream
type GenerateResponse struct {
	PredictionID string                  `json:"predictionId"`
	Status       models.PredictionStatus `json:"status"`
	Message      string                  `json:"message"`
}

// StatusResponse is the current view of a job
type StatusResponse struct {
	ID        string                  `json:"id"`
	Status    models.PredictionStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
	Result    *models.Result          `json:"result,omitempty"`
	Error     interface{}             `json:"error,omitempty"`
	Logs      []string                `json:"logs"`
}

// Generate handles POST /generate
func (h *MusicHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	in, err := input.Normalize(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	prediction, err := h.predictions.Submit(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		PredictionID: prediction.ID,
		Status:       prediction.Status,
		Message:      "Music generation started",
	})
}

// Status handles GET /status/{predictionId}
func (h *MusicHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["predictionId"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "prediction id is required")
		return
	}

	report, err := h.predictions.Refresh(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	p := report.Prediction
	logs := report.Logs
	if logs == nil {
		logs = []string{}
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		ID:        p.ID,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Result:    p.Result,
		Error:     p.Error,
		Logs:      logs,
	})
}

// decodeGenerateRequest accepts a JSON body or form fields. Unknown fields
// are ignored and an empty body decodes to an empty request.
func decodeGenerateRequest(r *http.Request) (input.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return input.Request{}, models.InvalidInputf("malformed form: %v", err)
		}
		return input.FromValues(r.Form)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return input.Request{}, models.InvalidInputf("malformed form: %v", err)
		}
		return input.FromValues(r.Form)
	}

	var req input.Request
	if r.Body == nil {
		return req, nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return input.Request{}, models.InvalidInputf("malformed JSON body: %v", err)
	}
	return req, nil
}
