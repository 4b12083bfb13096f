package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is a row in the catalog's documents table.
type Record struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	DocID       string `json:"doc_id"`
	ContentHash string `json:"content_hash"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'indexed',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_doc_id ON documents(doc_id);
`

// Catalog tracks indexed files in SQLite so re-indexing can skip
// unchanged documents by content hash.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens (or creates) the catalog database at the given path.
func NewCatalog(dbPath string) (*Catalog, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Catalog{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Upsert inserts or updates the record for a file path.
func (c *Catalog) Upsert(ctx context.Context, rec Record) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (path, filename, doc_id, content_hash, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			doc_id = excluded.doc_id,
			content_hash = excluded.content_hash,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, rec.Path, rec.Filename, rec.DocID, rec.ContentHash, rec.Status)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

// GetByPath retrieves the record for a file path, or nil if the path
// has never been indexed.
func (c *Catalog) GetByPath(ctx context.Context, path string) (*Record, error) {
	rec := &Record{}
	err := c.db.QueryRowContext(ctx, `
		SELECT id, path, filename, doc_id, content_hash, status, created_at, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&rec.ID, &rec.Path, &rec.Filename, &rec.DocID,
		&rec.ContentHash, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Unchanged reports whether the path is already cataloged with the
// given content hash.
func (c *Catalog) Unchanged(ctx context.Context, path, contentHash string) (bool, error) {
	rec, err := c.GetByPath(ctx, path)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.ContentHash == contentHash && rec.Status == "indexed", nil
}

// List returns all records ordered by most recently updated.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, path, filename, doc_id, content_hash, status, created_at, updated_at
		FROM documents ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Filename, &rec.DocID,
			&rec.ContentHash, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Count returns the number of cataloged documents.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

// Clear removes all catalog records.
func (c *Catalog) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM documents")
	return err
}
