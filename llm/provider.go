package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"
)

var (
	// ErrUnavailable is returned when the backend cannot be reached
	// (connection failure or timeout).
	ErrUnavailable = errors.New("llm: provider unavailable")

	// ErrRequestFailed is returned for non-success backend responses.
	ErrRequestFailed = errors.New("llm: request failed")
)

// Provider is the capability interface over a vision/language inference
// backend. Implementations must be safe for concurrent use.
type Provider interface {
	// AnalyzeImage sends an image with a guiding prompt and returns the
	// extracted content.
	AnalyzeImage(ctx context.Context, img image.Image, prompt string) (string, error)

	// AnalyzeText sends text with a guiding prompt and returns the
	// enhanced/structured text.
	AnalyzeText(ctx context.Context, text string, prompt string) (string, error)
}

// Config configures an LLM provider.
type Config struct {
	Provider   string // "ollama" or "openai"
	Model      string // shared model, used when ImageModel/TextModel are unset
	ImageModel string // Ollama vision model
	TextModel  string // Ollama text model
	BaseURL    string
	APIKey     string

	// Per-call timeouts. Image analysis is given more headroom because
	// local vision models may load lazily on first request.
	ImageTimeout time.Duration
	TextTimeout  time.Duration
}

// New creates an LLM provider from configuration. It fails fast on an
// unknown provider name or a missing OpenAI credential.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "openai":
		return NewOpenAI(cfg)
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// NewWithFallback creates the configured provider, substituting a default
// local Ollama provider if construction fails. Returns an error only when
// the fallback cannot be built either.
func NewWithFallback(cfg Config) (Provider, error) {
	p, err := New(cfg)
	if err == nil {
		return p, nil
	}
	if cfg.Provider != "ollama" {
		return NewOllama(Config{Provider: "ollama"}), nil
	}
	return nil, err
}

// envAPIKey reads the OpenAI credential from the environment.
func envAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// pngBase64 encodes an image as base64 PNG for inline transport.
func pngBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// truncateRunes limits s to at most n runes. Lengths are counted in runes to
// match how the sanitizer counts characters.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
