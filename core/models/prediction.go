package models

import "time"

// Prediction is the tracker's record of one submitted generation job
type Prediction struct {
	ID        string           `json:"id"`
	Status    PredictionStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Prompt    string           `json:"prompt"`
	Lyrics    string           `json:"lyrics,omitempty"`
	ImageURL  string           `json:"imageUrl,omitempty"`
	Result    *Result          `json:"result,omitempty"`
	Error     interface{}      `json:"error,omitempty"` // Upstream error payload, verbatim
}

// Clone returns a copy that shares no mutable state with p
func (p *Prediction) Clone() *Prediction {
	if p == nil {
		return nil
	}
	c := *p
	if p.Result != nil {
		r := *p.Result
		c.Result = &r
	}
	return &c
}

// PredictionStatus mirrors the status reported by the generation service
type PredictionStatus string

const (
	StatusStarting   PredictionStatus = "starting"
	StatusProcessing PredictionStatus = "processing"
	StatusSucceeded  PredictionStatus = "succeeded"
	StatusFailed     PredictionStatus = "failed"
	StatusCanceled   PredictionStatus = "canceled"
)

// IsTerminal reports whether the upstream job can no longer change status
func (s PredictionStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Result describes a materialized asset
type Result struct {
	AudioURL  string `json:"audioUrl"`
	SourceURL string `json:"sourceUrl"`
	PublicID  string `json:"publicId,omitempty"`
	Storage   string `json:"storage"`
	Bytes     int64  `json:"bytes,omitempty"`
}

// StatusReport is a prediction as seen by a status poll
type StatusReport struct {
	Prediction *Prediction
	Logs       []string
}

// UpstreamPrediction is the generation service's view of a job
type UpstreamPrediction struct {
	ID     string
	Status PredictionStatus
	Output Output
	Error  interface{}
	Logs   []string
}
