package docdex

import (
	"testing"
	"time"

	"github.com/brunobiangulo/docdex/parser"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Parsing.Provider != parser.ProviderNone {
		t.Errorf("Provider = %q, want none", cfg.Parsing.Provider)
	}
	if cfg.Parsing.Mode != parser.ModeTextOnly {
		t.Errorf("Mode = %q, want text_only", cfg.Parsing.Mode)
	}
	if !cfg.Parsing.ExtractImages {
		t.Error("ExtractImages should default to true")
	}
	if cfg.IndexBatchSize != 10 {
		t.Errorf("IndexBatchSize = %d, want 10", cfg.IndexBatchSize)
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("PARSING_MODE", "hybrid")
	t.Setenv("EXTRACT_IMAGES", "false")
	t.Setenv("OLLAMA_IMAGE_MODEL", "llava:13b")
	t.Setenv("OLLAMA_TEXT_MODEL", "llama3.1:8b")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("MAX_PAGES_PER_BATCH", "3")
	t.Setenv("LLM_TIMEOUT_SECONDS", "120")
	t.Setenv("EMBED_MODEL", "mxbai-embed-large")
	t.Setenv("DOCDEX_HOME", "/tmp/dx")

	cfg := FromEnv()
	if cfg.Parsing.Provider != parser.ProviderOllama {
		t.Errorf("Provider = %q", cfg.Parsing.Provider)
	}
	if cfg.Parsing.Mode != parser.ModeHybrid {
		t.Errorf("Mode = %q", cfg.Parsing.Mode)
	}
	if cfg.Parsing.ExtractImages {
		t.Error("ExtractImages should be overridden to false")
	}
	if cfg.Parsing.ImageModel != "llava:13b" || cfg.Parsing.TextModel != "llama3.1:8b" {
		t.Errorf("models = %q/%q", cfg.Parsing.ImageModel, cfg.Parsing.TextModel)
	}
	if cfg.Parsing.BaseURL != "http://gpu-box:11434" {
		t.Errorf("BaseURL = %q", cfg.Parsing.BaseURL)
	}
	if cfg.Parsing.BatchSize != 3 {
		t.Errorf("BatchSize = %d", cfg.Parsing.BatchSize)
	}
	if cfg.Parsing.ImageTimeout != 120*time.Second {
		t.Errorf("ImageTimeout = %v", cfg.Parsing.ImageTimeout)
	}
	if cfg.EmbedModel != "mxbai-embed-large" {
		t.Errorf("EmbedModel = %q", cfg.EmbedModel)
	}
	if cfg.PersistDir != "/tmp/dx" {
		t.Errorf("PersistDir = %q", cfg.PersistDir)
	}
}

func TestFromEnvOpenAIModel(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg := FromEnv()
	if cfg.Parsing.Provider != parser.ProviderOpenAI {
		t.Errorf("Provider = %q", cfg.Parsing.Provider)
	}
	if cfg.Parsing.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Parsing.Model)
	}
	if cfg.Parsing.APIKey != "sk-test" {
		t.Error("APIKey not taken from environment")
	}
}

func TestFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("MAX_PAGES_PER_BATCH", "not-a-number")
	t.Setenv("LLM_TIMEOUT_SECONDS", "-5")

	cfg := FromEnv()
	if cfg.Parsing.BatchSize != DefaultConfig().Parsing.BatchSize {
		t.Errorf("BatchSize = %d, want default", cfg.Parsing.BatchSize)
	}
	if cfg.Parsing.ImageTimeout != 0 {
		t.Errorf("ImageTimeout = %v, want unset", cfg.Parsing.ImageTimeout)
	}
}

func TestResolvePersistDir(t *testing.T) {
	cfg := Config{PersistDir: "/explicit"}
	if got := cfg.resolvePersistDir(); got != "/explicit" {
		t.Errorf("got %q", got)
	}

	cfg = Config{}
	got := cfg.resolvePersistDir()
	if got == "" {
		t.Error("default persist dir empty")
	}
}
