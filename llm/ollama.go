package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"
)

// ollamaProvider talks to Ollama's native chat API. Separate models may be
// configured for vision and text work; a single shared model serves both
// when only one is given.
type ollamaProvider struct {
	imageModel   string
	textModel    string
	baseURL      string
	client       *http.Client
	imageTimeout time.Duration
	textTimeout  time.Duration
}

// NewOllama creates a provider for a local Ollama endpoint.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	imageModel := cfg.ImageModel
	textModel := cfg.TextModel
	if imageModel == "" && textModel == "" && cfg.Model != "" {
		imageModel = cfg.Model
		textModel = cfg.Model
	}
	if imageModel == "" {
		imageModel = "llava"
	}
	if textModel == "" {
		textModel = "llama2"
	}
	if cfg.ImageTimeout == 0 {
		cfg.ImageTimeout = 60 * time.Second
	}
	if cfg.TextTimeout == 0 {
		cfg.TextTimeout = 30 * time.Second
	}

	return &ollamaProvider{
		imageModel:   imageModel,
		textModel:    textModel,
		baseURL:      cfg.BaseURL,
		client:       newHTTPClient(),
		imageTimeout: cfg.ImageTimeout,
		textTimeout:  cfg.TextTimeout,
	}
}

// newHTTPClient builds an HTTP client with a bounded connection pool.
// TLS verification stays enabled for https endpoints; only the minimum
// version is pinned.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    10,
			MaxConnsPerHost: 5,
			IdleConnTimeout: 90 * time.Second,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (p *ollamaProvider) AnalyzeImage(ctx context.Context, img image.Image, prompt string) (string, error) {
	b64, err := pngBase64(img)
	if err != nil {
		return "", err
	}

	req := ollamaChatRequest{
		Model: p.imageModel,
		Messages: []ollamaMessage{
			{Role: "user", Content: prompt, Images: []string{b64}},
		},
	}
	return p.chat(ctx, req, p.imageTimeout)
}

func (p *ollamaProvider) AnalyzeText(ctx context.Context, text string, prompt string) (string, error) {
	req := ollamaChatRequest{
		Model: p.textModel,
		Messages: []ollamaMessage{
			{Role: "user", Content: prompt + "\n\nText to analyze:\n" + text},
		},
	}
	return p.chat(ctx, req, p.textTimeout)
}

// chat posts a single non-streaming chat request. Every request carries an
// explicit timeout so a stalled backend call cannot hang a batch.
func (p *ollamaProvider) chat(ctx context.Context, req ollamaChatRequest, timeout time.Duration) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "docdex/1.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading ollama response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding ollama response: %v", ErrRequestFailed, err)
	}
	return chatResp.Message.Content, nil
}

// Available probes the Ollama endpoint. Used by callers that want to check
// the service before committing to an LLM-enhanced run.
func (p *ollamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
