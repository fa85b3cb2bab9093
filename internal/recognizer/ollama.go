package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/extract"
	"github.com/wangpeng1017/demoocr/internal/models"
)

const defaultOllamaModel = "llama3.2-vision:11b"

// Ollama is a vision-LLM backend running against a local Ollama daemon.
// It is only registered when OLLAMA_URL is configured.
type Ollama struct {
	baseURL string
	model   string
}

func NewOllama(cfg config.Config) *Ollama {
	return &Ollama{
		baseURL: cfg.OllamaURL,
		model:   cfg.Model(string(KeyOllama), defaultOllamaModel),
	}
}

func (o *Ollama) Key() Key          { return KeyOllama }
func (o *Ollama) Name() string      { return "Ollama" }
func (o *Ollama) Kind() models.Kind { return models.KindLLM }

func (o *Ollama) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	requestBody, err := json.Marshal(map[string]interface{}{
		"model":  o.model,
		"prompt": productPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.0,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return &Result{Records: extract.ParseProducts(response.Response), RawText: response.Response}, nil
}
