package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor produces one Page per non-empty sheet. Each
// sheet becomes a single Table with its first row as the header.
type SpreadsheetExtractor struct{}

func (e *SpreadsheetExtractor) ExtractPages(ctx context.Context, path string) ([]Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var pages []Page
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		table := Table{Header: rows[0]}
		if len(rows) > 1 {
			table.Rows = rows[1:]
		}

		pages = append(pages, Page{
			PageNumber: len(pages) + 1,
			Text:       "Sheet: " + sheet,
			Tables:     []Table{table},
		})
	}

	return pages, nil
}
