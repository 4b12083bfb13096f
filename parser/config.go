package parser

import (
	"fmt"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderNone   = "none"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Parsing modes accepted by Config.Mode.
const (
	ModeTextOnly = "text_only"
	ModeHybrid   = "hybrid"
	ModeLLMOnly  = "llm_only"
)

// Config configures the parser facade. It is validated once at construction
// and immutable for the lifetime of one Parser.
type Config struct {
	// Provider selects the LLM backend: "none", "ollama" or "openai".
	// "none" forces plain text extraction regardless of Mode.
	Provider string

	// Mode selects the enhancement mode: "text_only", "hybrid" or "llm_only".
	Mode string

	// ExtractImages enables per-page image extraction in the format extractors.
	ExtractImages bool

	// Model is the shared model name, used when ImageModel/TextModel are not
	// set separately (Ollama) or as the single model (OpenAI).
	Model      string
	ImageModel string // Ollama vision model (e.g. "llava")
	TextModel  string // Ollama text model (e.g. "llama3.1:8b")

	// BaseURL is the Ollama endpoint. Ignored for OpenAI.
	BaseURL string

	// APIKey is the OpenAI credential. Falls back to OPENAI_API_KEY.
	APIKey string

	// BatchSize bounds concurrent provider calls in the LLM-enhanced
	// strategy. Defaults to 5.
	BatchSize int

	// ImageTimeout and TextTimeout bound individual provider calls.
	ImageTimeout time.Duration
	TextTimeout  time.Duration
}

// DefaultConfig returns a Config for plain local extraction.
func DefaultConfig() Config {
	return Config{
		Provider:      ProviderNone,
		Mode:          ModeTextOnly,
		ExtractImages: true,
		BatchSize:     5,
	}
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderNone
	}
	if c.Mode == "" {
		c.Mode = ModeTextOnly
	}
	if c.BatchSize == 0 {
		c.BatchSize = 5
	}
	if c.ImageTimeout == 0 {
		c.ImageTimeout = 60 * time.Second
	}
	if c.TextTimeout == 0 {
		c.TextTimeout = 30 * time.Second
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderNone, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	switch c.Mode {
	case ModeTextOnly, ModeHybrid, ModeLLMOnly:
	default:
		return fmt.Errorf("%w: unknown parsing mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1", ErrInvalidConfig)
	}
	if c.ImageTimeout < 0 || c.TextTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}
