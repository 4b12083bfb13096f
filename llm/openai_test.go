package llm

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedOpenAIRequest struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`

	auth string
}

func openAITestServer(t *testing.T, reply string, capture *capturedOpenAIRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if capture != nil {
			capture.auth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIAnalyzeImage(t *testing.T) {
	var captured capturedOpenAIRequest
	srv := openAITestServer(t, "page description", &captured)
	defer srv.Close()

	p, err := NewOpenAI(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	got, err := p.AnalyzeImage(context.Background(), img, "Extract everything")
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if got != "page description" {
		t.Errorf("got %q", got)
	}

	if captured.auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", captured.auth)
	}
	if captured.Model != "gpt-4-vision-preview" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.Temperature != 0.1 || captured.MaxTokens != 4096 {
		t.Errorf("temperature/max_tokens = %v/%d", captured.Temperature, captured.MaxTokens)
	}

	var parts []openAIContentPart
	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(captured.Messages[0], &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if err := json.Unmarshal(msg.Content, &parts); err != nil {
		t.Fatalf("unmarshal content parts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d content parts, want 2", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "Extract everything" {
		t.Errorf("text part = %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL == nil {
		t.Fatalf("image part = %+v", parts[1])
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image URL = %q, want data URI", parts[1].ImageURL.URL)
	}
	if parts[1].ImageURL.Detail != "high" {
		t.Errorf("detail = %q, want high", parts[1].ImageURL.Detail)
	}
}

func TestOpenAIAnalyzeTextSubstitutesVisionModel(t *testing.T) {
	var captured capturedOpenAIRequest
	srv := openAITestServer(t, "enhanced", &captured)
	defer srv.Close()

	p, err := NewOpenAI(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	got, err := p.AnalyzeText(context.Background(), "some text", "Structure:")
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if got != "enhanced" {
		t.Errorf("got %q", got)
	}
	// The default model is vision-tier; text calls swap it out.
	if captured.Model != "gpt-4-turbo-preview" {
		t.Errorf("model = %q, want gpt-4-turbo-preview", captured.Model)
	}
}

func TestOpenAIAnalyzeTextKeepsNonVisionModel(t *testing.T) {
	var captured capturedOpenAIRequest
	srv := openAITestServer(t, "ok", &captured)
	defer srv.Close()

	p, err := NewOpenAI(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	if _, err := p.AnalyzeText(context.Background(), "text", "prompt"); err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", captured.Model)
	}
}

func TestOpenAIAnalyzeTextTruncatesInput(t *testing.T) {
	var captured capturedOpenAIRequest
	srv := openAITestServer(t, "ok", &captured)
	defer srv.Close()

	p, err := NewOpenAI(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	longPrompt := strings.Repeat("p", maxOpenAIPrompt+100)
	longText := strings.Repeat("t", maxOpenAIText+100)
	if _, err := p.AnalyzeText(context.Background(), longText, longPrompt); err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}

	var msg struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(captured.Messages[0], &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if len(msg.Content) > maxOpenAIPrompt+maxOpenAIText+len("\n\nText to analyze:\n") {
		t.Errorf("content length = %d, inputs not truncated", len(msg.Content))
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p, err := NewOpenAI(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	_, err = p.AnalyzeText(context.Background(), "text", "prompt")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("err = %v, want ErrRequestFailed", err)
	}
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewOpenAI(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	_, err = p.AnalyzeText(context.Background(), "text", "prompt")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("err = %v, want ErrRequestFailed", err)
	}
}
