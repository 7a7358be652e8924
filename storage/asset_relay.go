package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"music-relay/core/models"
)

var audioFormats = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"flac": true,
	"ogg":  true,
	"m4a":  true,
	"aac":  true,
}

// AssetRelay copies a finished generation from its transient source URL
// into the configured backend
type AssetRelay struct {
	backend       Backend
	client        *http.Client
	defaultFormat string
}

// NewAssetRelay creates an asset relay. defaultFormat names the file
// extension used when the source URL does not carry a known audio one.
func NewAssetRelay(backend Backend, client *http.Client, defaultFormat string) *AssetRelay {
	if client == nil {
		client = http.DefaultClient
	}
	if defaultFormat == "" {
		defaultFormat = models.DefaultAudioFormat
	}
	return &AssetRelay{backend: backend, client: client, defaultFormat: defaultFormat}
}

// Materialize downloads the output's asset into memory and stores it as
// music-<jobID>.<format>
func (r *AssetRelay) Materialize(ctx context.Context, output models.Output, jobID string) (*models.Result, error) {
	sourceURL, err := output.ResolveURL()
	if err != nil {
		return nil, fmt.Errorf("resolving output of %s (%s): %w", jobID, output.Kind, err)
	}

	data, contentType, err := r.download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	format := r.formatFor(sourceURL)
	if contentType == "" {
		contentType = mime.TypeByExtension("." + format)
	}
	name := fmt.Sprintf("music-%s.%s", jobID, format)

	obj, err := r.backend.Put(ctx, name, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	return &models.Result{
		AudioURL:  obj.URL,
		SourceURL: sourceURL,
		PublicID:  obj.PublicID,
		Storage:   r.backend.Name(),
		Bytes:     obj.Bytes,
	}, nil
}

func (r *AssetRelay) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating download request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", &models.UpstreamError{Op: "download asset", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &models.UpstreamError{Op: "download asset", StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &models.UpstreamError{Op: "download asset", Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = ""
	}
	return data, contentType, nil
}

func (r *AssetRelay) formatFor(sourceURL string) string {
	if u, err := url.Parse(sourceURL); err == nil {
		if ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")); audioFormats[ext] {
			return ext
		}
	}
	return r.defaultFormat
}
