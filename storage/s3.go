package storage

import (
	"context"
	"fmt"
	"strings"

	"music-relay/core/models"
)

// ObjectPutter writes an object to a bucket
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error
	Region() string
}

// S3Backend stores objects in an S3 bucket
type S3Backend struct {
	client        ObjectPutter
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Backend creates a backend for bucket. Keys get prefix prepended;
// public URLs are built from publicBaseURL, or from the bucket's
// virtual-hosted endpoint when it is empty.
func NewS3Backend(client ObjectPutter, bucket, prefix, publicBaseURL string) (*S3Backend, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return &S3Backend{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(strings.TrimSpace(prefix), "/"),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}, nil
}

func (b *S3Backend) Name() string { return ModeS3 }

func (b *S3Backend) Put(ctx context.Context, name, contentType string, data []byte) (*Object, error) {
	key := b.key(name)
	if err := b.client.PutObject(ctx, b.bucket, key, contentType, data); err != nil {
		return nil, &models.UpstreamError{Op: "s3 upload", Err: err}
	}
	return &Object{
		URL:      b.publicURL(key),
		PublicID: key,
		Format:   formatOf(name),
		Bytes:    int64(len(data)),
		MimeType: contentType,
	}, nil
}

func (b *S3Backend) key(name string) string {
	name = strings.TrimLeft(name, "/")
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

func (b *S3Backend) publicURL(key string) string {
	if b.publicBaseURL != "" {
		return b.publicBaseURL + "/" + key
	}
	region := b.client.Region()
	if region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", b.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, region, key)
}
