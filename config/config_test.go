package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "3000" || cfg.StorageMode != StorageLocal || cfg.StoreBackend != StoreMemory {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.HTTPTimeout != 60*time.Second || cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("limits = %v / %d", cfg.HTTPTimeout, cfg.MaxUploadBytes)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
port: "4000"
storage_mode: S3
s3_bucket: from-file
http_timeout: 15s
replicate_api_token: file-token
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "5000")
	t.Setenv("S3_PREFIX", "music")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("port = %q, env should win", cfg.Port)
	}
	if cfg.StorageMode != StorageS3 || cfg.S3Bucket != "from-file" || cfg.S3Prefix != "music" {
		t.Errorf("storage = %q bucket %q prefix %q", cfg.StorageMode, cfg.S3Bucket, cfg.S3Prefix)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.HTTPTimeout)
	}
	if cfg.UploadDir != "uploads" {
		t.Errorf("upload dir = %q, default should survive", cfg.UploadDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.ReplicateToken = "r8_token"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	bad := Default()
	bad.StorageMode = StorageCloudinary
	bad.StoreBackend = "mongo"

	err := bad.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if len(merr.Errors) != 4 {
		t.Fatalf("got %d errors, want 4: %v", len(merr.Errors), err)
	}
	for _, want := range []string{"REPLICATE_API_TOKEN", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_UPLOAD_PRESET", "STORE_BACKEND"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %s in %v", want, err)
		}
	}
}
