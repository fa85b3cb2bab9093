package recognizer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wangpeng1017/demoocr/internal/models"
)

// Tesseract is a local raw-text OCR backend using the gosseract client.
// It needs no credentials; a missing tesseract installation surfaces as a
// permanent failure for this backend only.
type Tesseract struct {
	languages []string
}

func NewTesseract() *Tesseract {
	var langs []string
	if v := strings.TrimSpace(os.Getenv("TESSERACT_LANGS")); v != "" {
		langs = strings.Split(v, ",")
	}
	return &Tesseract{languages: langs}
}

func (t *Tesseract) Key() Key          { return KeyTesseract }
func (t *Tesseract) Name() string      { return "Tesseract" }
func (t *Tesseract) Kind() models.Kind { return models.KindOCR }

func (t *Tesseract) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, fmt.Errorf("failed to set languages: %w", err)
		}
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to recognize text: %w", err)
	}

	return &Result{RawText: strings.TrimSpace(text)}, nil
}
