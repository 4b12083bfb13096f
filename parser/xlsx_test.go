package parser

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeTestXLSX(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.xlsx")

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Region", "Sales"},
		{"North", 120},
		{"South", 80},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatal(err)
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving xlsx: %v", err)
	}
	return path
}

func TestSpreadsheetExtractor(t *testing.T) {
	path := writeTestXLSX(t)

	e := &SpreadsheetExtractor{}
	pages, err := e.ExtractPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}

	// The empty sheet contributes no page.
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	page := pages[0]
	if page.PageNumber != 1 {
		t.Errorf("PageNumber = %d", page.PageNumber)
	}
	if page.Text != "Sheet: Sheet1" {
		t.Errorf("Text = %q", page.Text)
	}
	if len(page.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(page.Tables))
	}

	tbl := page.Tables[0]
	if len(tbl.Header) != 2 || tbl.Header[0] != "Region" || tbl.Header[1] != "Sales" {
		t.Errorf("header = %v", tbl.Header)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][0] != "North" || tbl.Rows[1][1] != "80" {
		t.Errorf("rows = %v", tbl.Rows)
	}
}

func TestSpreadsheetExtractorMissingFile(t *testing.T) {
	e := &SpreadsheetExtractor{}
	_, err := e.ExtractPages(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", err)
	}
}
