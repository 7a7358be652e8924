package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"music-relay/core/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// CloudinaryBackend uploads through an unsigned upload preset
type CloudinaryBackend struct {
	cld          *cloudinary.Cloudinary
	uploadPreset string
}

// NewCloudinaryBackend creates a backend for cloudName's upload API
func NewCloudinaryBackend(cloudName, uploadPreset string, client *http.Client) (*CloudinaryBackend, error) {
	return newCloudinaryBackend(cloudName, uploadPreset, "", client)
}

// newCloudinaryBackend allows the upload API host to be overridden
func newCloudinaryBackend(cloudName, uploadPreset, uploadPrefix string, client *http.Client) (*CloudinaryBackend, error) {
	if cloudName == "" || uploadPreset == "" {
		return nil, fmt.Errorf("cloudinary cloud name and upload preset are required")
	}

	conf, err := config.NewFromParams(cloudName, "", "")
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	if uploadPrefix != "" {
		conf.API.UploadPrefix = uploadPrefix
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("creating cloudinary client: %w", err)
	}
	if client != nil {
		cld.Upload.Client = *client
	}
	return &CloudinaryBackend{cld: cld, uploadPreset: uploadPreset}, nil
}

func (b *CloudinaryBackend) Name() string { return ModeCloudinary }

func (b *CloudinaryBackend) Put(ctx context.Context, name, contentType string, data []byte) (*Object, error) {
	uploaded, err := b.cld.Upload.UnsignedUpload(ctx, bytes.NewReader(data), b.uploadPreset, uploader.UploadParams{
		ResourceType: "auto",
	})
	if err != nil {
		return nil, &models.UpstreamError{Op: "cloudinary upload", Err: err}
	}
	if uploaded.Error.Message != "" {
		return nil, &models.UpstreamError{Op: "cloudinary upload", Message: uploaded.Error.Message}
	}
	if uploaded.SecureURL == "" {
		return nil, &models.UpstreamError{Op: "cloudinary upload", Message: "response has no secure_url"}
	}

	format := uploaded.Format
	if format == "" {
		format = formatOf(name)
	}
	size := int64(uploaded.Bytes)
	if size == 0 {
		size = int64(len(data))
	}
	return &Object{
		URL:      uploaded.SecureURL,
		PublicID: uploaded.PublicID,
		Format:   format,
		Bytes:    size,
		MimeType: contentType,
	}, nil
}
