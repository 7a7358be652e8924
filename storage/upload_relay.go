package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadRelay republishes client uploads to the configured backend
type UploadRelay struct {
	backend Backend
}

// NewUploadRelay creates an upload relay
func NewUploadRelay(backend Backend) *UploadRelay {
	return &UploadRelay{backend: backend}
}

// Store saves data under a random image-<uuid> name that keeps the
// original extension
func (r *UploadRelay) Store(ctx context.Context, data []byte, filename, contentType string) (*Object, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	name := "image-" + uuid.NewString() + ext

	obj, err := r.backend.Put(ctx, name, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("storing upload %q: %w", filename, err)
	}
	obj.Name = name
	if obj.MimeType == "" {
		obj.MimeType = contentType
	}
	return obj, nil
}
