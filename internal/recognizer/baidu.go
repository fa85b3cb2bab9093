package recognizer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/wangpeng1017/demoocr/internal/models"
)

const (
	defaultBaiduTokenURL = "https://aip.baidubce.com/oauth/2.0/token"
	defaultBaiduOCRURL   = "https://aip.baidubce.com/rest/2.0/ocr/v1/general_basic"
)

// BaiduOCR is a raw-text backend using Baidu's general_basic OCR endpoint.
// It contributes no structured records. The OAuth token is fetched per call.
// TODO: cache the access token instead of refetching it every invocation.
type BaiduOCR struct {
	tokenURL string
	ocrURL   string
}

func NewBaiduOCR() *BaiduOCR {
	return &BaiduOCR{
		tokenURL: defaultBaiduTokenURL,
		ocrURL:   defaultBaiduOCRURL,
	}
}

func (b *BaiduOCR) Key() Key          { return KeyBaiduOCR }
func (b *BaiduOCR) Name() string      { return "Baidu OCR" }
func (b *BaiduOCR) Kind() models.Kind { return models.KindOCR }

func (b *BaiduOCR) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	apiKey := os.Getenv("BAIDU_OCR_API_KEY")
	secretKey := os.Getenv("BAIDU_OCR_SECRET_KEY")
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("BAIDU_OCR_API_KEY and BAIDU_OCR_SECRET_KEY environment variables not set")
	}

	token, err := b.fetchAccessToken(ctx, apiKey, secretKey)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, "POST", b.ocrURL+"?access_token="+url.QueryEscape(token), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		WordsResult []struct {
			Words string `json:"words"`
		} `json:"words_result"`
		ErrorCode int    `json:"error_code"`
		ErrorMsg  string `json:"error_msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if response.ErrorCode != 0 {
		return nil, fmt.Errorf("baidu OCR error %d: %s", response.ErrorCode, response.ErrorMsg)
	}

	lines := make([]string, 0, len(response.WordsResult))
	for _, w := range response.WordsResult {
		lines = append(lines, w.Words)
	}
	return &Result{RawText: strings.Join(lines, "\n")}, nil
}

func (b *BaiduOCR) fetchAccessToken(ctx context.Context, apiKey, secretKey string) (string, error) {
	tokenURL := fmt.Sprintf("%s?grant_type=client_credentials&client_id=%s&client_secret=%s",
		b.tokenURL, url.QueryEscape(apiKey), url.QueryEscape(secretKey))

	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var data struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("baidu token error: %s", data.Error)
	}
	return data.AccessToken, nil
}
