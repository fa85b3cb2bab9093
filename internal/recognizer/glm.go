package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/extract"
	"github.com/wangpeng1017/demoocr/internal/models"
)

const (
	defaultGLMModel   = "glm-4v"
	defaultGLMBaseURL = "https://open.bigmodel.cn/api/paas/v4"
)

// GLM is a vision-LLM backend speaking Zhipu's OpenAI-compatible chat API.
type GLM struct {
	model   string
	baseURL string
}

func NewGLM(cfg config.Config) *GLM {
	baseURL := os.Getenv("ZHIPUAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGLMBaseURL
	}
	return &GLM{
		model:   cfg.Model(string(KeyGLM4V), defaultGLMModel),
		baseURL: baseURL,
	}
}

func (g *GLM) Key() Key          { return KeyGLM4V }
func (g *GLM) Name() string      { return "GLM-4V" }
func (g *GLM) Kind() models.Kind { return models.KindLLM }

func (g *GLM) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	apiKey := os.Getenv("ZHIPUAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ZHIPUAI_API_KEY environment variable not set")
	}

	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	requestBody, err := json.Marshal(map[string]interface{}{
		"model": g.model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": productPrompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": dataURI,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from GLM-4V")
	}

	text := response.Choices[0].Message.Content
	return &Result{Records: extract.ParseProducts(text), RawText: text}, nil
}
