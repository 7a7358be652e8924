package handlers

import (
	"net/http"
	"time"

	"music-relay/core/monitoring"
)

// HealthHandler reports liveness and exports metrics
type HealthHandler struct {
	service string
	metrics *monitoring.MetricsExporter
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string, metrics *monitoring.MetricsExporter) *HealthHandler {
	return &HealthHandler{service: service, metrics: metrics, now: time.Now}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"service":   h.service,
	})
}

// Metrics handles GET /metrics
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.metrics.GetPrometheusMetrics()))
}
