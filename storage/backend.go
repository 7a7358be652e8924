package storage

import (
	"context"
	"path"
	"strings"
)

// Storage modes selectable at startup
const (
	ModeLocal      = "local"
	ModeCloudinary = "cloudinary"
	ModeS3         = "s3"
)

// Object describes a stored file
type Object struct {
	Name     string
	URL      string
	PublicID string
	Format   string
	Bytes    int64
	MimeType string
}

// Backend republishes bytes under a name and returns a stable reference.
// One Backend is chosen from configuration when the process starts.
type Backend interface {
	Name() string
	Put(ctx context.Context, name, contentType string, data []byte) (*Object, error)
}

// formatOf returns the lower-case extension of name without the dot
func formatOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
