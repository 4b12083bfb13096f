// Package docdex indexes documents for semantic search. Files are
// parsed into per-page units, combined into text by a configurable
// strategy (plain extraction or LLM enhancement), embedded into a
// vector store, and tracked in a catalog so unchanged files are
// skipped on re-index.
package docdex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brunobiangulo/docdex/parser"
	"github.com/brunobiangulo/docdex/store"
)

// IndexResult reports the outcome of indexing a single file.
type IndexResult struct {
	Path    string `json:"path"`
	DocID   string `json:"doc_id,omitempty"`
	Skipped bool   `json:"skipped"`
}

// IndexSummary aggregates a directory indexing run.
type IndexSummary struct {
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Stats describes the current index.
type Stats struct {
	Documents  int    `json:"documents"`
	Cataloged  int    `json:"cataloged"`
	PersistDir string `json:"persist_dir"`
}

// Indexer wires the document parser, vector store and catalog together.
type Indexer struct {
	cfg     Config
	parser  *parser.Parser
	vectors *store.VectorStore
	catalog *store.Catalog

	mu     sync.Mutex
	closed bool
}

// Option customizes an Indexer.
type Option func(*Indexer)

// WithVectorStore replaces the default vector store. Used by tests to
// inject a store with a local embedding function.
func WithVectorStore(vs *store.VectorStore) Option {
	return func(ix *Indexer) { ix.vectors = vs }
}

// New builds an Indexer from the given configuration.
func New(cfg Config, opts ...Option) (*Indexer, error) {
	if cfg.IndexBatchSize <= 0 {
		cfg.IndexBatchSize = 10
	}

	p, err := parser.New(cfg.Parsing)
	if err != nil {
		return nil, err
	}

	persistDir := cfg.resolvePersistDir()

	ix := &Indexer{parser: p}
	for _, opt := range opts {
		opt(ix)
	}

	if ix.vectors == nil {
		vectors, err := store.NewVectorStore(store.VectorConfig{
			PersistDir:    filepath.Join(persistDir, "vectors"),
			EmbedProvider: embedProvider(cfg.Parsing.Provider),
			EmbedModel:    cfg.EmbedModel,
			BaseURL:       cfg.Parsing.BaseURL,
			APIKey:        cfg.Parsing.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
		ix.vectors = vectors
	}

	catalog, err := store.NewCatalog(filepath.Join(persistDir, "docdex.db"))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	ix.catalog = catalog

	cfg.PersistDir = persistDir
	ix.cfg = cfg
	return ix, nil
}

// embedProvider maps the parsing provider to an embedding backend.
// Without an LLM provider, embeddings still run locally via Ollama.
func embedProvider(parsingProvider string) string {
	if parsingProvider == parser.ProviderOpenAI {
		return "openai"
	}
	return "ollama"
}

// IndexFile parses and indexes a single file. Files whose content hash
// matches the catalog entry are skipped. Returns ErrEmptyDocument when
// extraction produces no content.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (*IndexResult, error) {
	if err := ix.check(); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fileHash, err := hashFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", absPath, err)
	}

	unchanged, err := ix.catalog.Unchanged(ctx, absPath, fileHash)
	if err != nil {
		return nil, err
	}
	if unchanged {
		slog.Debug("skipping unchanged file", "path", absPath)
		return &IndexResult{Path: absPath, Skipped: true}, nil
	}

	doc, err := ix.parser.Parse(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, absPath)
	}
	if !parser.ValidFileContent(doc.Content) {
		return nil, fmt.Errorf("%w: %s looks binary", ErrEmptyDocument, absPath)
	}
	doc.Metadata.IndexedAt = time.Now().UTC()

	if err := ix.vectors.Add(ctx, store.Entry{
		DocID:    doc.DocID,
		Content:  doc.Content,
		Metadata: doc.Metadata.ToMap(),
	}); err != nil {
		return nil, err
	}

	if err := ix.catalog.Upsert(ctx, store.Record{
		Path:        absPath,
		Filename:    doc.Metadata.Filename,
		DocID:       doc.DocID,
		ContentHash: fileHash,
		Status:      "indexed",
	}); err != nil {
		return nil, err
	}

	slog.Info("indexed document", "path", absPath, "doc_id", doc.DocID)
	return &IndexResult{Path: absPath, DocID: doc.DocID}, nil
}

// IndexDirectory walks dir and indexes every supported file, in sorted
// order, committing to the vector store in batches. Individual file
// failures are logged and counted but do not abort the run.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (*IndexSummary, error) {
	if err := ix.check(); err != nil {
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ix.parser.IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)

	summary := &IndexSummary{}
	batch := make([]store.Entry, 0, ix.cfg.IndexBatchSize)
	pending := make([]store.Record, 0, ix.cfg.IndexBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.vectors.AddBatch(ctx, batch); err != nil {
			return err
		}
		for _, rec := range pending {
			if err := ix.catalog.Upsert(ctx, rec); err != nil {
				return err
			}
		}
		summary.Indexed += len(batch)
		batch = batch[:0]
		pending = pending[:0]
		return nil
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			summary.fail(path, err)
			continue
		}

		fileHash, err := hashFile(absPath)
		if err != nil {
			summary.fail(absPath, err)
			continue
		}

		unchanged, err := ix.catalog.Unchanged(ctx, absPath, fileHash)
		if err != nil {
			summary.fail(absPath, err)
			continue
		}
		if unchanged {
			summary.Skipped++
			continue
		}

		doc, err := ix.parser.Parse(ctx, absPath)
		if err != nil {
			summary.fail(absPath, err)
			continue
		}
		if strings.TrimSpace(doc.Content) == "" || !parser.ValidFileContent(doc.Content) {
			summary.fail(absPath, ErrEmptyDocument)
			continue
		}
		doc.Metadata.IndexedAt = time.Now().UTC()

		batch = append(batch, store.Entry{
			DocID:    doc.DocID,
			Content:  doc.Content,
			Metadata: doc.Metadata.ToMap(),
		})
		pending = append(pending, store.Record{
			Path:        absPath,
			Filename:    doc.Metadata.Filename,
			DocID:       doc.DocID,
			ContentHash: fileHash,
			Status:      "indexed",
		})

		if len(batch) >= ix.cfg.IndexBatchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}

	slog.Info("directory indexed", "dir", dir,
		"indexed", summary.Indexed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

func (s *IndexSummary) fail(path string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", path, err))
	slog.Warn("indexing file failed", "path", path, "error", err)
}

// Search returns up to limit indexed documents ranked by semantic
// similarity to the query.
func (ix *Indexer) Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	if err := ix.check(); err != nil {
		return nil, err
	}
	return ix.vectors.Search(ctx, query, limit)
}

// Stats reports the size of the index.
func (ix *Indexer) Stats(ctx context.Context) (*Stats, error) {
	if err := ix.check(); err != nil {
		return nil, err
	}
	cataloged, err := ix.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Documents:  ix.vectors.Count(),
		Cataloged:  cataloged,
		PersistDir: ix.cfg.PersistDir,
	}, nil
}

// Clear removes all indexed documents and catalog records.
func (ix *Indexer) Clear(ctx context.Context) error {
	if err := ix.check(); err != nil {
		return err
	}
	if err := ix.vectors.Clear(); err != nil {
		return err
	}
	return ix.catalog.Clear(ctx)
}

// Supported returns the registered file extensions, sorted.
func (ix *Indexer) Supported() []string {
	return ix.parser.Extensions()
}

// Close releases the catalog database. The indexer cannot be used
// afterwards.
func (ix *Indexer) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.catalog.Close()
}

func (ix *Indexer) check() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}
	return nil
}

// hashFile returns the hex SHA-256 of the file's bytes.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
