package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/wangpeng1017/demoocr/internal/models"
	"github.com/wangpeng1017/demoocr/internal/pipeline"
)

type stubProcessor struct {
	result   *models.ProcessResult
	err      error
	gotMime  string
	gotName  string
	gotBytes int
}

func (s *stubProcessor) Process(ctx context.Context, data []byte, mimeType, filename string) (*models.ProcessResult, error) {
	s.gotMime = mimeType
	s.gotName = filename
	s.gotBytes = len(data)
	return s.result, s.err
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleProcess(t *testing.T) {
	expected := &models.ProcessResult{
		Input:       models.ProcessInput{Kind: models.InputImage, Filename: "label.jpg"},
		Recognizers: map[string]models.RecognizerSummary{},
		Aggregated:  models.AggregatedResult{Items: []models.ProductRecord{}, DedupedBy: "name+price"},
	}
	processor := &stubProcessor{result: expected}
	handler := New(processor)

	body, contentType := multipartBody(t, "label.jpg", "image/jpeg", []byte("imagedata"))
	req := httptest.NewRequest("POST", "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.HandleProcess(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if processor.gotMime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", processor.gotMime)
	}
	if processor.gotName != "label.jpg" {
		t.Errorf("filename = %q, want label.jpg", processor.gotName)
	}
	if processor.gotBytes != len("imagedata") {
		t.Errorf("bytes = %d, want %d", processor.gotBytes, len("imagedata"))
	}

	var got models.ProcessResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if got.Input.Filename != "label.jpg" {
		t.Errorf("response filename = %q, want label.jpg", got.Input.Filename)
	}
	if got.Aggregated.DedupedBy != "name+price" {
		t.Errorf("dedupedBy = %q, want name+price", got.Aggregated.DedupedBy)
	}
}

func TestHandleProcessErrors(t *testing.T) {
	t.Run("method not allowed", func(t *testing.T) {
		handler := New(&stubProcessor{})
		req := httptest.NewRequest("GET", "/api/process", nil)
		rec := httptest.NewRecorder()

		handler.HandleProcess(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		handler := New(&stubProcessor{})
		req := httptest.NewRequest("POST", "/api/process", bytes.NewBufferString("not multipart"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=none")
		rec := httptest.NewRecorder()

		handler.HandleProcess(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unsupported media type", func(t *testing.T) {
		handler := New(&stubProcessor{err: pipeline.ErrUnsupportedMedia})

		body, contentType := multipartBody(t, "doc.pdf", "application/pdf", []byte("pdfdata"))
		req := httptest.NewRequest("POST", "/api/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.HandleProcess(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("frame extraction failure", func(t *testing.T) {
		handler := New(&stubProcessor{err: context.DeadlineExceeded})

		body, contentType := multipartBody(t, "clip.mp4", "video/mp4", []byte("videodata"))
		req := httptest.NewRequest("POST", "/api/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.HandleProcess(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}
