package docdex

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brunobiangulo/docdex/parser"
)

// Config holds all configuration for the indexer.
type Config struct {
	// PersistDir is where the vector store and catalog live.
	// If empty, defaults to ~/.docdex (falling back to ./.docdex).
	PersistDir string `json:"persist_dir" yaml:"persist_dir"`

	// Parsing configures document extraction and the enhancement strategy.
	Parsing parser.Config `json:"parsing" yaml:"parsing"`

	// EmbedModel names the embedding model used for semantic search.
	// Defaults per embedding provider.
	EmbedModel string `json:"embed_model" yaml:"embed_model"`

	// IndexBatchSize is how many parsed documents are written to the
	// vector store per batch during directory indexing. Defaults to 10.
	IndexBatchSize int `json:"index_batch_size" yaml:"index_batch_size"`
}

// DefaultConfig returns a Config with local-first defaults: no LLM
// enhancement, text-only combination, storage under ~/.docdex.
func DefaultConfig() Config {
	return Config{
		Parsing:        parser.DefaultConfig(),
		IndexBatchSize: 10,
	}
}

// FromEnv returns DefaultConfig overlaid with environment variables:
//
//	LLM_PROVIDER         none | ollama | openai
//	PARSING_MODE         text_only | hybrid | llm_only
//	EXTRACT_IMAGES       true | false
//	OLLAMA_MODEL         shared model for image and text analysis
//	OLLAMA_IMAGE_MODEL   image analysis model
//	OLLAMA_TEXT_MODEL    text analysis model
//	OLLAMA_BASE_URL      Ollama endpoint
//	OPENAI_API_KEY       OpenAI credentials
//	OPENAI_MODEL         OpenAI model
//	MAX_PAGES_PER_BATCH  pages analyzed concurrently per batch
//	LLM_TIMEOUT_SECONDS  image analysis timeout
//	EMBED_MODEL          embedding model for search
//	DOCDEX_HOME          storage directory
func FromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("DOCDEX_HOME"); v != "" {
		cfg.PersistDir = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Parsing.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("PARSING_MODE"); v != "" {
		cfg.Parsing.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("EXTRACT_IMAGES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Parsing.ExtractImages = b
		}
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Parsing.Model = v
	}
	if v := os.Getenv("OLLAMA_IMAGE_MODEL"); v != "" {
		cfg.Parsing.ImageModel = v
	}
	if v := os.Getenv("OLLAMA_TEXT_MODEL"); v != "" {
		cfg.Parsing.TextModel = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Parsing.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Parsing.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" && cfg.Parsing.Provider == parser.ProviderOpenAI {
		cfg.Parsing.Model = v
	}
	if v := os.Getenv("MAX_PAGES_PER_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Parsing.BatchSize = n
		}
	}
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Parsing.ImageTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		cfg.EmbedModel = v
	}

	return cfg
}

// resolvePersistDir computes the final storage directory.
func (c *Config) resolvePersistDir() string {
	if c.PersistDir != "" {
		return c.PersistDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docdex"
	}
	return filepath.Join(home, ".docdex")
}
