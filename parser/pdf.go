package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor produces one Page per PDF page. Text comes from the
// document's text layer; there is no OCR. Table structure is not
// reconstructed from PDFs, so Tables is always empty.
type PDFExtractor struct {
	// ExtractImages rasterizes each page and attaches the result by index.
	ExtractImages bool
}

func (e *PDFExtractor) ExtractPages(ctx context.Context, path string) ([]Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]Page, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := ""
		page := reader.Page(i)
		if !page.V.IsNull() {
			// A page that fails text extraction degrades to empty text
			// rather than aborting the document.
			if t, err := page.GetPlainText(nil); err == nil {
				text = strings.TrimSpace(t)
			}
		}

		pages = append(pages, Page{
			PageNumber: i,
			Text:       text,
			Tables:     e.extractTables(i),
		})
	}

	if e.ExtractImages {
		attachPageImages(path, pages)
	}

	return pages, nil
}

// extractTables is a stub: PDF table structure is not reconstructed.
func (e *PDFExtractor) extractTables(pageNum int) []Table {
	return nil
}
