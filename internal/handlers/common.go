package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wangpeng1017/demoocr/internal/models"
)

// Processor runs the recognition pipeline over uploaded media.
type Processor interface {
	Process(ctx context.Context, data []byte, mimeType, filename string) (*models.ProcessResult, error)
}

type Handler struct {
	processor Processor
}

func New(p Processor) *Handler {
	return &Handler{processor: p}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
