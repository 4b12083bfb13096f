// Package store persists indexed documents: a chromem-go collection
// holds content embeddings for semantic search, and a SQLite catalog
// tracks which files have been indexed and their content hashes.
package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "documents"

// Entry is a document to be stored, addressed by its DocID.
type Entry struct {
	DocID    string
	Content  string
	Metadata map[string]string
}

// SearchResult is a single semantic search hit.
type SearchResult struct {
	DocID      string            `json:"doc_id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Similarity float32           `json:"similarity"`
}

// VectorConfig configures the vector store.
type VectorConfig struct {
	// PersistDir stores the collection on disk. Empty means in-memory only.
	PersistDir string

	// EmbedProvider selects the embedding backend: "ollama" (default)
	// or "openai".
	EmbedProvider string

	// EmbedModel names the embedding model. Defaults to
	// "nomic-embed-text" for Ollama and text-embedding-3-small for OpenAI.
	EmbedModel string

	// BaseURL overrides the Ollama endpoint.
	BaseURL string

	// APIKey authenticates OpenAI embedding requests.
	APIKey string
}

// Option customizes a VectorStore.
type Option func(*VectorStore)

// WithEmbeddingFunc overrides the embedding backend. Used by tests to
// avoid network calls.
func WithEmbeddingFunc(fn chromem.EmbeddingFunc) Option {
	return func(s *VectorStore) { s.embed = fn }
}

// VectorStore wraps a chromem-go collection of indexed documents.
type VectorStore struct {
	db    *chromem.DB
	col   *chromem.Collection
	embed chromem.EmbeddingFunc
}

// NewVectorStore opens (or creates) the document collection. With a
// persist directory the collection is loaded from disk and every write
// is flushed back.
func NewVectorStore(cfg VectorConfig, opts ...Option) (*VectorStore, error) {
	s := &VectorStore{}
	for _, opt := range opts {
		opt(s)
	}

	if s.embed == nil {
		fn, err := embeddingFunc(cfg)
		if err != nil {
			return nil, err
		}
		s.embed = fn
	}

	if cfg.PersistDir != "" {
		if err := os.MkdirAll(cfg.PersistDir, 0755); err != nil {
			return nil, fmt.Errorf("creating persist directory: %w", err)
		}
		db, err := chromem.NewPersistentDB(cfg.PersistDir, true)
		if err != nil {
			return nil, fmt.Errorf("opening vector database: %w", err)
		}
		s.db = db
	} else {
		s.db = chromem.NewDB()
	}

	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", collectionName, err)
	}
	s.col = col

	return s, nil
}

func embeddingFunc(cfg VectorConfig) (chromem.EmbeddingFunc, error) {
	switch cfg.EmbedProvider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedding requires an API key")
		}
		model := chromem.EmbeddingModelOpenAI3Small
		if cfg.EmbedModel != "" {
			model = chromem.EmbeddingModelOpenAI(cfg.EmbedModel)
		}
		return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, model), nil
	case "ollama", "":
		model := cfg.EmbedModel
		if model == "" {
			model = "nomic-embed-text"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return chromem.NewEmbeddingFuncOllama(model, strings.TrimSuffix(baseURL, "/")+"/api"), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}

// Add stores a single document. An existing document with the same
// DocID is overwritten.
func (s *VectorStore) Add(ctx context.Context, e Entry) error {
	return s.AddBatch(ctx, []Entry{e})
}

// AddBatch stores multiple documents in one call.
func (s *VectorStore) AddBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		if e.DocID == "" {
			return fmt.Errorf("entry missing doc ID")
		}
		if e.Content == "" {
			return fmt.Errorf("entry %s has empty content", e.DocID)
		}
		docs = append(docs, chromem.Document{
			ID:       e.DocID,
			Content:  e.Content,
			Metadata: e.Metadata,
		})
	}

	if err := s.col.AddDocuments(ctx, docs, 2); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Search returns up to limit documents ranked by cosine similarity to
// the query.
func (s *VectorStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("search limit must be positive, got %d", limit)
	}

	count := s.col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			DocID:      r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of stored documents.
func (s *VectorStore) Count() int {
	return s.col.Count()
}

// Clear drops all stored documents and recreates the empty collection.
func (s *VectorStore) Clear() error {
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embed)
	if err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}
	s.col = col
	return nil
}
