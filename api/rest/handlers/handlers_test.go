package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"music-relay/core/models"
	"music-relay/core/monitoring"
	"music-relay/storage"

	"github.com/gorilla/mux"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakePredictions struct {
	submitted []models.GenerationInput
	submitErr error

	report     *models.StatusReport
	refreshErr error
	refreshed  []string
}

func (f *fakePredictions) Submit(ctx context.Context, in models.GenerationInput) (*models.Prediction, error) {
	f.submitted = append(f.submitted, in)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.Prediction{ID: "abc123", Status: models.StatusStarting}, nil
}

func (f *fakePredictions) Refresh(ctx context.Context, id string) (*models.StatusReport, error) {
	f.refreshed = append(f.refreshed, id)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.report, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGenerateJSON(t *testing.T) {
	fake := &fakePredictions{}
	h := NewMusicHandler(fake)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"upbeat pop","bitrate":"128000","unknown":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["predictionId"] != "abc123" || body["status"] != "starting" || body["message"] == "" {
		t.Fatalf("body = %v", body)
	}
	if len(fake.submitted) != 1 {
		t.Fatalf("submitted %d times", len(fake.submitted))
	}
	got := fake.submitted[0]
	if got.Prompt != "upbeat pop" || got.Bitrate != 128000 || got.SampleRate != models.DefaultSampleRate || got.AudioFormat != "mp3" {
		t.Fatalf("input = %+v", got)
	}
}

func TestGenerateFormModifiers(t *testing.T) {
	fake := &fakePredictions{}
	h := NewMusicHandler(fake)

	form := url.Values{
		"input": {"la la la"},
		"style": {"jazz"},
		"vocal": {"female"},
	}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := fake.submitted[0]
	if got.Prompt != "jazz, female" || got.Lyrics != "la la la" {
		t.Fatalf("input = %+v", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{name: "missing prompt", body: `{"lyrics":"only words"}`, wantStatus: http.StatusBadRequest, wantError: "prompt is required"},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantError: "prompt is required"},
		{name: "malformed json", body: `{"prompt":`, wantStatus: http.StatusBadRequest, wantError: "malformed JSON"},
		{
			name:       "upstream failure",
			body:       `{"prompt":"x"}`,
			submitErr:  &models.UpstreamError{Op: "create prediction", StatusCode: 402, Message: "insufficient credit"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "insufficient credit",
			wantCalls:  1,
		},
		{
			name:       "unhandled failure",
			body:       `{"prompt":"x"}`,
			submitErr:  errors.New("connection pool exhausted"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePredictions{submitErr: tt.submitErr}
			h := NewMusicHandler(fake)

			rec := httptest.NewRecorder()
			h.Generate(rec, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			msg, _ := decodeBody(t, rec)["error"].(string)
			if !strings.Contains(msg, tt.wantError) {
				t.Fatalf("error = %q, want %q", msg, tt.wantError)
			}
			if len(fake.submitted) != tt.wantCalls {
				t.Fatalf("submit calls = %d, want %d", len(fake.submitted), tt.wantCalls)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fake := &fakePredictions{report: &models.StatusReport{
		Prediction: &models.Prediction{
			ID:        "abc123",
			Status:    models.StatusSucceeded,
			CreatedAt: created,
			UpdatedAt: created.Add(time.Minute),
			Result:    &models.Result{AudioURL: "/uploads/music-abc123.mp3", SourceURL: "https://replicate.delivery/x.mp3", Storage: "local"},
		},
	}}
	h := NewMusicHandler(fake)

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/status/abc123", nil), map[string]string{"predictionId": "abc123"})
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	result, _ := body["result"].(map[string]interface{})
	if body["id"] != "abc123" || body["status"] != "succeeded" || result["audioUrl"] != "/uploads/music-abc123.mp3" {
		t.Fatalf("body = %v", body)
	}
	if logs, ok := body["logs"].([]interface{}); !ok || len(logs) != 0 {
		t.Fatalf("logs = %#v, want empty list", body["logs"])
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("error should be omitted: %v", body)
	}
	if body["createdAt"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("createdAt = %v", body["createdAt"])
	}
}

func TestStatusErrors(t *testing.T) {
	fake := &fakePredictions{refreshErr: models.ErrNotFound}
	h := NewMusicHandler(fake)

	rec := httptest.NewRecorder()
	h.Status(rec, mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/status/nope", nil), map[string]string{"predictionId": "nope"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/status/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d", rec.Code)
	}
	if len(fake.refreshed) != 1 {
		t.Fatalf("refresh calls = %d, want 1", len(fake.refreshed))
	}
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	} else {
		w.WriteField("note", "no file here")
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newLocalUploads(t *testing.T) *storage.UploadRelay {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	return storage.NewUploadRelay(backend)
}

func TestUpload(t *testing.T) {
	metrics := monitoring.NewMetricsExporter()
	h := NewUploadHandler(newLocalUploads(t), 1<<20, metrics)

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "image", "cover.png", pngHeader))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	imageURL, _ := body["imageUrl"].(string)
	if !strings.HasPrefix(imageURL, "/uploads/image-") || !strings.HasSuffix(imageURL, ".png") {
		t.Fatalf("imageUrl = %q", imageURL)
	}
	if body["mimetype"] != "image/png" || body["format"] != "png" || body["bytes"] != float64(len(pngHeader)) {
		t.Fatalf("body = %v", body)
	}
	if body["filename"] != strings.TrimPrefix(imageURL, "/uploads/") {
		t.Fatalf("filename = %v", body["filename"])
	}
	if !strings.Contains(metrics.GetPrometheusMetrics(), "music_relay_uploads_total 1") {
		t.Fatalf("upload not counted:\n%s", metrics.GetPrometheusMetrics())
	}
}

func TestUploadRejects(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		maxBytes   int64
		wantStatus int
	}{
		{
			name:       "no file",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "", "", nil) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong field",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.png", pngHeader) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an image",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "image", "notes.txt", []byte("plain text notes")) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too large",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "image", "big.png", bytes.Repeat([]byte{1}, 4096)) },
			maxBytes:   1024,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "one byte over the limit",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "image", "big.png", pngOfSize(1025)) },
			maxBytes:   1024,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name: "body far over the limit",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "image", "huge.png", pngOfSize(1024+multipartOverhead+1))
			},
			maxBytes:   1024,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			h := NewUploadHandler(newLocalUploads(t), maxBytes, nil)

			rec := httptest.NewRecorder()
			h.Upload(rec, tt.req(t))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func pngOfSize(n int) []byte {
	data := make([]byte, n)
	copy(data, pngHeader)
	return data
}

func TestUploadAcceptsFileAtLimit(t *testing.T) {
	h := NewUploadHandler(newLocalUploads(t), 1024, nil)

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "image", "exact.png", pngOfSize(1024)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["bytes"] != float64(1024) {
		t.Fatalf("bytes = %v", body["bytes"])
	}
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler("music-relay", monitoring.NewMetricsExporter())
	h.now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	body := decodeBody(t, rec)
	if rec.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "music-relay" || body["timestamp"] != "2026-05-06T07:08:09Z" {
		t.Fatalf("status %d body %v", rec.Code, body)
	}

	rec = httptest.NewRecorder()
	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") || !strings.Contains(rec.Body.String(), "music_relay_submissions_total 0") {
		t.Fatalf("metrics: %s %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
}
