package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brunobiangulo/docdex/llm"
)

// Parser is the facade over the format extractors and the configured
// strategy. Configuration is resolved once at construction; an instance is
// immutable afterwards and safe for concurrent use.
type Parser struct {
	extractors map[string]Extractor
	strategy   Strategy
}

// New builds a Parser from configuration. The strategy and its provider are
// constructed here so that bad configuration (unknown provider name, missing
// credential) surfaces immediately rather than on first use.
func New(cfg Config) (*Parser, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strategy, err := buildStrategy(cfg)
	if err != nil {
		return nil, err
	}

	p := &Parser{
		extractors: make(map[string]Extractor),
		strategy:   strategy,
	}

	pdf := &PDFExtractor{ExtractImages: cfg.ExtractImages}
	word := &WordExtractor{ExtractImages: cfg.ExtractImages}
	pres := &PresentationExtractor{ExtractImages: cfg.ExtractImages}
	sheet := &SpreadsheetExtractor{}

	p.Register(".pdf", pdf)
	p.Register(".docx", word)
	p.Register(".doc", word)
	p.Register(".pptx", pres)
	p.Register(".ppt", pres)
	p.Register(".xlsx", sheet)
	p.Register(".xls", sheet)

	return p, nil
}

func buildStrategy(cfg Config) (Strategy, error) {
	if cfg.Provider == ProviderNone || cfg.Mode == ModeTextOnly {
		return NewTextOnly(), nil
	}

	provider, err := llm.New(llm.Config{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		ImageModel:   cfg.ImageModel,
		TextModel:    cfg.TextModel,
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		ImageTimeout: cfg.ImageTimeout,
		TextTimeout:  cfg.TextTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return NewLLMEnhanced(provider, cfg.Mode, cfg.BatchSize), nil
}

// Register maps a file extension (with leading dot) to an extractor,
// replacing any existing mapping.
func (p *Parser) Register(ext string, e Extractor) {
	p.extractors[strings.ToLower(ext)] = e
}

// Parse turns a file into a finished Document: extension-resolved
// extraction followed by the configured strategy, with source metadata
// stamped on the result.
func (p *Parser) Parse(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		// Permission and other stat failures are not "not found".
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := p.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	pages, err := extractor.ExtractPages(ctx, path)
	if err != nil {
		return nil, err
	}

	content, err := p.strategy.Combine(ctx, pages)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	meta := Metadata{
		Filename: filepath.Base(path),
		FileType: strings.TrimPrefix(ext, "."),
		FilePath: absPath,
		FileSize: info.Size(),
	}
	return NewDocument(content, meta), nil
}

// IsSupported reports whether the file's extension has a registered
// extractor.
func (p *Parser) IsSupported(path string) bool {
	_, ok := p.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (p *Parser) Extensions() []string {
	exts := make([]string, 0, len(p.extractors))
	for ext := range p.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
