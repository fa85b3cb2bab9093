package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/wangpeng1017/demoocr/internal/pipeline"
)

// maxUploadBytes caps uploads at 10MB.
const maxUploadBytes = 10 * 1024 * 1024

// HandleProcess accepts one uploaded image or video (multipart field "file")
// and responds with the ProcessResult JSON. Per-recognizer failures live
// inside the recognizers mapping; only input errors and frame-extraction
// failures produce a non-200 response.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Missing file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(data) >= maxUploadBytes {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	result, err := h.processor.Process(r.Context(), data, mimeType, header.Filename)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnsupportedMedia) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, result)
}
