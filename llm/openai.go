package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// textFallbackModel replaces a vision-capable model for pure text
	// analysis, avoiding unnecessary vision-tier cost and latency.
	textFallbackModel = "gpt-4-turbo-preview"

	// Defensive input limits applied before sending, independent of the
	// sanitizer upstream.
	maxOpenAIPrompt = 500
	maxOpenAIText   = 5000
)

// openAIProvider talks to the hosted OpenAI chat completions API.
// The credential is folded into a prepared Authorization header at
// construction and never logged.
type openAIProvider struct {
	model        string
	auth         string
	baseURL      string
	client       *http.Client
	imageTimeout time.Duration
	textTimeout  time.Duration
}

// NewOpenAI creates a provider for the OpenAI API. The credential comes from
// the config or the OPENAI_API_KEY environment variable; construction fails
// without one.
func NewOpenAI(cfg Config) (Provider, error) {
	key := cfg.APIKey
	if key == "" {
		key = envAPIKey()
	}
	if key == "" {
		return nil, fmt.Errorf("openai api key not configured: set it explicitly or via OPENAI_API_KEY")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-vision-preview"
	}
	if cfg.ImageTimeout == 0 {
		cfg.ImageTimeout = 60 * time.Second
	}
	if cfg.TextTimeout == 0 {
		cfg.TextTimeout = 30 * time.Second
	}

	return &openAIProvider{
		model:        cfg.Model,
		auth:         "Bearer " + key,
		baseURL:      cfg.BaseURL,
		client:       newHTTPClient(),
		imageTimeout: cfg.ImageTimeout,
		textTimeout:  cfg.TextTimeout,
	}, nil
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openAIContentPart
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) AnalyzeImage(ctx context.Context, img image.Image, prompt string) (string, error) {
	b64, err := pngBase64(img)
	if err != nil {
		return "", err
	}

	req := openAIChatRequest{
		Model: p.model,
		Messages: []openAIMessage{{
			Role: "user",
			Content: []openAIContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &openAIImageURL{
					URL:    "data:image/png;base64," + b64,
					Detail: "high",
				}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   4096,
	}
	return p.chat(ctx, req, p.imageTimeout)
}

func (p *openAIProvider) AnalyzeText(ctx context.Context, text string, prompt string) (string, error) {
	prompt = truncateRunes(prompt, maxOpenAIPrompt)
	text = truncateRunes(text, maxOpenAIText)

	// A vision model is wasteful for pure text work; substitute the text
	// model instead of passing the cost through.
	model := p.model
	if strings.Contains(model, "vision") {
		model = textFallbackModel
	}

	req := openAIChatRequest{
		Model: model,
		Messages: []openAIMessage{{
			Role:    "user",
			Content: prompt + "\n\nText to analyze:\n" + text,
		}},
		Temperature: 0.1,
		MaxTokens:   4096,
	}
	return p.chat(ctx, req, p.textTimeout)
}

func (p *openAIProvider) chat(ctx context.Context, req openAIChatRequest, timeout time.Duration) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", p.auth)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading openai response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: openai status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding openai response: %v", ErrRequestFailed, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices in response", ErrRequestFailed)
	}
	return chatResp.Choices[0].Message.Content, nil
}
