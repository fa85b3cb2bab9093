package recognizer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/extract"
	"github.com/wangpeng1017/demoocr/internal/models"
)

const (
	defaultGeminiProModel   = "gemini-2.5-pro"
	defaultGeminiFlashModel = "gemini-2.5-flash"
)

// Gemini is a vision-LLM backend using Google's Generative AI API. The same
// adapter serves both the Pro and Flash registrations; only the model id and
// key differ.
type Gemini struct {
	key   Key
	name  string
	model string
}

func NewGeminiPro(cfg config.Config) *Gemini {
	return &Gemini{
		key:   KeyGeminiPro,
		name:  "Gemini 2.5 Pro",
		model: geminiModelID(cfg.Model(string(KeyGeminiPro), defaultGeminiProModel)),
	}
}

func NewGeminiFlash(cfg config.Config) *Gemini {
	return &Gemini{
		key:   KeyGeminiFlash,
		name:  "Gemini 2.5 Flash",
		model: geminiModelID(cfg.Model(string(KeyGeminiFlash), defaultGeminiFlashModel)),
	}
}

// geminiModelID strips a Vertex-style "models/" prefix so either form of the
// model identifier works in overrides.
func geminiModelID(id string) string {
	return strings.TrimPrefix(id, "models/")
}

func (g *Gemini) Key() Key          { return g.key }
func (g *Gemini) Name() string      { return g.name }
func (g *Gemini) Kind() models.Kind { return models.KindLLM }

func (g *Gemini) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(productPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	text := string(txt)
	return &Result{Records: extract.ParseProducts(text), RawText: text}, nil
}

// imageFormat maps a mime type to the bare format name genai.ImageData wants.
func imageFormat(mimeType string) string {
	return strings.TrimPrefix(mimeType, "image/")
}
