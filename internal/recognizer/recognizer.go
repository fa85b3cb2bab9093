// Package recognizer defines the uniform contract for recognition backends
// and the invocation wrapper that adds timing and transient-failure retry.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/models"
)

// Key identifies a registered backend.
type Key string

const (
	KeyGeminiPro   Key = "gemini_pro"
	KeyGeminiFlash Key = "gemini_flash"
	KeyGLM4V       Key = "glm_4v"
	KeyBaiduOCR    Key = "baidu_ocr"
	KeyOllama      Key = "ollama"
	KeyTesseract   Key = "tesseract"
)

// productPrompt is the fixed extraction prompt shared by all vision-LLM
// backends. Models are asked for a bare JSON array; ParseProducts tolerates
// surrounding prose anyway.
const productPrompt = `You are an information extraction assistant. Identify every product label
visible in the provided image and output a strict JSON array with no
surrounding commentary:
[
  { "product_name": "Product A", "price": "19.99" }
]
Rules:
- product_name: string; keep it as close to the label text as possible, dropping unrelated wording
- price: string; keep the currency symbol if present (e.g. ¥, $, RMB) or the bare number (e.g. 8.50); use "" when unknown
- If the image contains no product labels, return []
Output only the JSON array and nothing else.`

// Result is a successful backend response. OCR-only backends leave Records
// empty and report recognized text via RawText.
type Result struct {
	Records []models.ProductRecord
	RawText string
}

// Recognizer is one pluggable recognition backend. Implementations read
// their credentials from the environment at call time; missing credentials
// are a permanent failure for that backend only.
type Recognizer interface {
	Key() Key
	Name() string
	Kind() models.Kind
	Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error)
}

// Outcome is the settled result of one (recognizer, frame) invocation.
// It is produced exactly once and never mutated.
type Outcome struct {
	Key        Key
	Status     models.Status
	DurationMs int64
	Records    []models.ProductRecord
	RawText    string
	Error      string
}

// StatusError reports a non-success HTTP status from a backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code: %d - %s", e.Code, e.Body)
}

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// Invoke runs one recognizer against one image and always settles to an
// Outcome; backend errors never propagate past this boundary. Transient
// failures are retried with exponential backoff, up to maxAttempts total.
func Invoke(ctx context.Context, r Recognizer, image []byte, mimeType string) Outcome {
	return invoke(ctx, r, image, mimeType, baseBackoff)
}

func invoke(ctx context.Context, r Recognizer, image []byte, mimeType string, backoff time.Duration) Outcome {
	start := time.Now()
	var err error
retry:
	for attempt := 1; ; attempt++ {
		var res *Result
		res, err = r.Recognize(ctx, image, mimeType)
		if err == nil {
			return Outcome{
				Key:        r.Key(),
				Status:     models.StatusSuccess,
				DurationMs: time.Since(start).Milliseconds(),
				Records:    res.Records,
				RawText:    res.RawText,
			}
		}
		if attempt >= maxAttempts || !isTransient(err) {
			break
		}
		slog.Debug("Transient recognizer failure, retrying", "recognizer", r.Key(), "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return Outcome{
		Key:        r.Key(),
		Status:     models.StatusFailure,
		DurationMs: time.Since(start).Milliseconds(),
		Error:      err.Error(),
	}
}

// isTransient classifies failures worth retrying: rate limiting or temporary
// unavailability, signalled either by HTTP 429/503 or by the vendor's error
// message.
func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code == 503
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return ge.Code == 429 || ge.Code == 503
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unavailable", "overloaded", "retry"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Registry returns the configured backend set in registration order. The
// order is fixed; aggregation depends on it for stable output. Ollama is
// only registered when an endpoint is configured, since a local daemon is
// opt-in rather than credential-gated.
func Registry(cfg config.Config) []Recognizer {
	recs := []Recognizer{
		NewGeminiPro(cfg),
		NewGeminiFlash(cfg),
		NewGLM(cfg),
	}
	if cfg.OllamaURL != "" {
		recs = append(recs, NewOllama(cfg))
	}
	return append(recs, NewBaiduOCR(), NewTesseract())
}
