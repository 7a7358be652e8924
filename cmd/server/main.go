package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"music-relay/api/rest/routes"
	"music-relay/config"
	"music-relay/core/monitoring"
	"music-relay/core/repository"
	"music-relay/core/tracker"
	"music-relay/logger"
	"music-relay/providers/aws"
	"music-relay/providers/replicate"
	"music-relay/storage"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Failed to load configuration", logger.Err(err))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &logger.Options{
		Level: logger.ParseLevel(cfg.LogLevel),
		Color: true,
	})))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", logger.Err(err))
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize prediction store
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize prediction store", logger.Err(err))
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("Prediction store ready", "backend", cfg.StoreBackend)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Initialize generation client
	generator, err := replicate.NewClient(cfg.ReplicateToken, cfg.ReplicateModel, cfg.ReplicateBaseURL, httpClient)
	if err != nil {
		slog.Error("Failed to create generation client", logger.Err(err))
		os.Exit(1)
	}

	// Initialize storage backend
	backend, err := newBackend(ctx, cfg, httpClient)
	if err != nil {
		slog.Error("Failed to initialize storage", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("Storage ready", "mode", backend.Name())

	metrics := monitoring.NewMetricsExporter()
	predictions := tracker.NewTracker(
		generator,
		store,
		storage.NewAssetRelay(backend, httpClient, ""),
		tracker.WithMetrics(metrics),
	)

	deps := routes.Dependencies{
		Predictions:    predictions,
		Uploads:        storage.NewUploadRelay(backend),
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if local, ok := backend.(*storage.LocalBackend); ok {
		deps.Files = local.Handler()
		deps.FilesPath = local.PublicPath()
	}

	r := mux.NewRouter()
	routes.SetupRoutes(r, deps)

	// Start server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "model", cfg.ReplicateModel)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", logger.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", logger.Err(err))
	}
	slog.Info("Server exited")
}

func newStore(ctx context.Context, cfg *config.Config) (repository.PredictionStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		store, err := repository.NewRedisStore(ctx, repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case config.StorePostgres:
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPredictionRepository(db), func() { db.Close() }, nil
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}

func newBackend(ctx context.Context, cfg *config.Config, client *http.Client) (storage.Backend, error) {
	switch cfg.StorageMode {
	case config.StorageCloudinary:
		return storage.NewCloudinaryBackend(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, client)
	case config.StorageS3:
		awsClient, err := aws.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Backend(awsClient, cfg.S3Bucket, cfg.S3Prefix, cfg.S3PublicBaseURL)
	case config.StorageLocal:
		return storage.NewLocalBackend(cfg.UploadDir, cfg.PublicBasePath)
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}
}
