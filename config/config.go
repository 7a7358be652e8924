package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Storage and store backends accepted by Validate
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
	StorageS3         = "s3"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	// Server
	Port           string        `yaml:"port" env:"PORT"`
	ServiceName    string        `yaml:"service_name" env:"SERVICE_NAME"`
	HTTPTimeout    time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`

	// Generation service
	ReplicateToken   string `yaml:"replicate_api_token" env:"REPLICATE_API_TOKEN"`
	ReplicateModel   string `yaml:"replicate_model" env:"REPLICATE_MODEL"`
	ReplicateBaseURL string `yaml:"replicate_base_url" env:"REPLICATE_BASE_URL"`

	// Storage
	StorageMode    string `yaml:"storage_mode" env:"STORAGE_MODE"`
	UploadDir      string `yaml:"upload_dir" env:"UPLOAD_DIR"`
	PublicBasePath string `yaml:"public_base_path" env:"PUBLIC_BASE_PATH"`

	CloudinaryCloudName    string `yaml:"cloudinary_cloud_name" env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryUploadPreset string `yaml:"cloudinary_upload_preset" env:"CLOUDINARY_UPLOAD_PRESET"`

	AWSRegion       string `yaml:"aws_region" env:"AWS_REGION"`
	S3Bucket        string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Prefix        string `yaml:"s3_prefix" env:"S3_PREFIX"`
	S3PublicBaseURL string `yaml:"s3_public_base_url" env:"S3_PUBLIC_BASE_URL"`

	// Prediction store
	StoreBackend  string `yaml:"store_backend" env:"STORE_BACKEND"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Port:           "3000",
		ServiceName:    "music-relay",
		HTTPTimeout:    60 * time.Second,
		MaxUploadBytes: 10 << 20,
		LogLevel:       "info",
		ReplicateModel: "minimax/music-1.5",
		StorageMode:    StorageLocal,
		UploadDir:      "uploads",
		PublicBasePath: "/uploads",
		StoreBackend:   StoreMemory,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then environment variables, each layer overriding the previous one
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.StorageMode = strings.ToLower(strings.TrimSpace(cfg.StorageMode))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return &cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Port) == "" {
		result = multierror.Append(result, fmt.Errorf("PORT is required"))
	}
	if c.ReplicateToken == "" {
		result = multierror.Append(result, fmt.Errorf("REPLICATE_API_TOKEN is required"))
	}
	if !strings.Contains(c.ReplicateModel, "/") {
		result = multierror.Append(result, fmt.Errorf("REPLICATE_MODEL must look like owner/name, got %q", c.ReplicateModel))
	}
	if c.HTTPTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("HTTP_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("MAX_UPLOAD_BYTES must be positive"))
	}

	switch c.StorageMode {
	case StorageLocal:
		if c.UploadDir == "" {
			result = multierror.Append(result, fmt.Errorf("UPLOAD_DIR is required for local storage"))
		}
	case StorageCloudinary:
		if c.CloudinaryCloudName == "" {
			result = multierror.Append(result, fmt.Errorf("CLOUDINARY_CLOUD_NAME is required for cloudinary storage"))
		}
		if c.CloudinaryUploadPreset == "" {
			result = multierror.Append(result, fmt.Errorf("CLOUDINARY_UPLOAD_PRESET is required for cloudinary storage"))
		}
	case StorageS3:
		if c.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("S3_BUCKET is required for s3 storage"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown STORAGE_MODE %q", c.StorageMode))
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			result = multierror.Append(result, fmt.Errorf("REDIS_ADDR is required for the redis store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("DATABASE_URL is required for the postgres store"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	return result.ErrorOrNil()
}
