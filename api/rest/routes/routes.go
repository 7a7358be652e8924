package routes

import (
	"net/http"

	"music-relay/api/rest/handlers"
	"music-relay/core/monitoring"

	"github.com/gorilla/mux"
)

// Dependencies are the services the route table dispatches to
type Dependencies struct {
	Predictions    handlers.PredictionService
	Uploads        handlers.Uploader
	Metrics        *monitoring.MetricsExporter
	ServiceName    string
	MaxUploadBytes int64

	// Files serves stored assets under FilesPath. Both are empty unless
	// storage is on local disk.
	Files     http.Handler
	FilesPath string
}

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, deps Dependencies) {
	musicHandler := handlers.NewMusicHandler(deps.Predictions)
	uploadHandler := handlers.NewUploadHandler(deps.Uploads, deps.MaxUploadBytes, deps.Metrics)
	healthHandler := handlers.NewHealthHandler(deps.ServiceName, deps.Metrics)

	r.Use(handlers.LogRequests)

	// Generation endpoints
	r.HandleFunc("/generate", musicHandler.Generate).Methods("POST")
	r.HandleFunc("/status/{predictionId}", musicHandler.Status).Methods("GET")
	r.HandleFunc("/status", musicHandler.Status).Methods("GET")
	r.HandleFunc("/status/", musicHandler.Status).Methods("GET")

	r.HandleFunc("/upload", uploadHandler.Upload).Methods("POST")

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/metrics", healthHandler.Metrics).Methods("GET")

	if deps.Files != nil && deps.FilesPath != "" {
		r.PathPrefix(deps.FilesPath + "/").Handler(deps.Files).Methods("GET", "HEAD")
	}
}
