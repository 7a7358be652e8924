package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"music-relay/core/monitoring"
	"music-relay/storage"
)

// Uploader republishes an uploaded file
type Uploader interface {
	Store(ctx context.Context, data []byte, filename, contentType string) (*storage.Object, error)
}

// multipartOverhead is the room left for boundaries and part headers on top
// of the file size limit
const multipartOverhead = 64 << 10

// UploadHandler handles image uploads
type UploadHandler struct {
	uploads  Uploader
	maxBytes int64
	metrics  *monitoring.MetricsExporter
}

// NewUploadHandler creates a new upload handler. Files larger than
// maxBytes are rejected with 413.
func NewUploadHandler(uploads Uploader, maxBytes int64, metrics *monitoring.MetricsExporter) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes, metrics: metrics}
}

// UploadResponse describes a stored upload
type UploadResponse struct {
	ImageURL string `json:"imageUrl"`
	PublicID string `json:"publicId,omitempty"`
	Format   string `json:"format"`
	Bytes    int64  `json:"bytes"`
	MimeType string `json:"mimetype"`
	Filename string `json:"filename"`
}

// Upload handles POST /upload with the file in the "image" field
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	bodyLimit := h.maxBytes + multipartOverhead
	if r.ContentLength > bodyLimit {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(h.maxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(h.maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(h.maxBytes))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("reading upload: %w", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "Only image uploads are allowed")
		return
	}

	obj, err := h.uploads.Store(r.Context(), data, header.Filename, contentType)
	h.metrics.RecordUpload(err)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		ImageURL: obj.URL,
		PublicID: obj.PublicID,
		Format:   obj.Format,
		Bytes:    obj.Bytes,
		MimeType: obj.MimeType,
		Filename: obj.Name,
	})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File too large, limit is %d bytes", limit)
}
