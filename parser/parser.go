package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"strconv"
	"time"
)

// Page is the normalized content extracted from a single page, slide,
// section or sheet of a document.
type Page struct {
	PageNumber int         // 1-based, unique within a document
	Text       string      // extracted text, empty when none was found
	Image      image.Image // at most one raster image per page, nil when absent
	Tables     []Table     // ordered tables detected on the page
}

// Table is a simple rectangular table. The first row of any detected table
// is always treated as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Metadata describes the source file of a parsed document.
type Metadata struct {
	Filename  string
	FileType  string // extension without the dot ("pdf", "docx", ...)
	FilePath  string // absolute path
	FileSize  int64
	IndexedAt time.Time // zero until the indexer stamps it
}

// ToMap converts metadata to the string map consumed by the vector store.
func (m Metadata) ToMap() map[string]string {
	data := map[string]string{
		"filename":  m.Filename,
		"file_type": m.FileType,
		"file_path": m.FilePath,
	}
	if !m.IndexedAt.IsZero() {
		data["indexed_at"] = m.IndexedAt.Format(time.RFC3339)
	}
	if m.FileSize > 0 {
		data["file_size"] = strconv.FormatInt(m.FileSize, 10)
	}
	return data
}

// Document is a fully parsed document: combined content plus metadata.
type Document struct {
	Content  string
	Metadata Metadata
	DocID    string
}

// NewDocument builds a Document and derives its stable identity from the
// filename and a short hash of the content. Re-indexing identical content
// under the same filename yields the same ID on purpose.
func NewDocument(content string, meta Metadata) *Document {
	return &Document{
		Content:  content,
		Metadata: meta,
		DocID:    meta.Filename + "_" + shortHash(content),
	}
}

// shortHash returns the first 8 hex characters of the SHA-256 of s.
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// Extractor turns a format-specific file into an ordered sequence of pages.
type Extractor interface {
	ExtractPages(ctx context.Context, path string) ([]Page, error)
}

// Strategy combines extracted pages into the final document text.
type Strategy interface {
	Combine(ctx context.Context, pages []Page) (string, error)
}
